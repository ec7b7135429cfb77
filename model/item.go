// model/item.go
package model

// DefaultAllowedRentalDays is used when an item is created without an
// explicit loan period.
const DefaultAllowedRentalDays = 14

type Item struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Barcode           string `json:"barcode"`
	AllowedRentalDays int    `json:"allowed_rental_days"`
	Available         bool   `json:"available"`
	Deleted           bool   `json:"deleted"`
}
