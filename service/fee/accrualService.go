package feesvc

import (
	"context"
	"time"
)

// AccrualRepo is the sweep the store runs against overdue rentals.
type AccrualRepo interface {
	AccrueOverdue(ctx context.Context, now time.Time, perDay float64) (int64, error)
}

type Accruer interface {
	// AccrueOverdue brings late fees on overdue open rentals up to
	// date and returns how many rentals moved.
	AccrueOverdue(ctx context.Context) (int64, error)
}

type accruer struct {
	r      AccrualRepo
	perDay float64
	now    func() time.Time
}

func NewAccruer(r AccrualRepo, perDay float64) Accruer {
	return &accruer{r: r, perDay: perDay, now: time.Now}
}

func (a *accruer) AccrueOverdue(ctx context.Context) (int64, error) {
	return a.r.AccrueOverdue(ctx, a.now().UTC(), a.perDay)
}
