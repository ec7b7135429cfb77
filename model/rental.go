// model/rental.go
package model

import "time"

type Rental struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	ItemID int64 `json:"item_id"`

	// Username and ItemTitle are snapshots taken at creation time so
	// rentals can be listed without a join. They are never re-synced
	// after a later rename.
	Username  string `json:"username"`
	ItemTitle string `json:"item_title"`

	RentalDate time.Time  `json:"rental_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`

	LateFee float64 `json:"late_fee"`
	Deleted bool    `json:"deleted"`
}

// Open reports whether the rental still holds its item copy.
func (r *Rental) Open() bool {
	return r.ReturnDate == nil && !r.Deleted
}
