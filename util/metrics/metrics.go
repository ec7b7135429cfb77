// util/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RentalsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_rentals_created_total",
		Help: "Rentals successfully opened.",
	})

	RentalsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_rentals_closed_total",
		Help: "Rentals returned or cancelled.",
	})

	RentalsRefused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_rentals_refused_total",
		Help: "Checkout attempts refused, by error kind.",
	}, []string{"kind"})

	LateFeesPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_late_fees_paid_total",
		Help: "Late fee amount collected.",
	})
)
