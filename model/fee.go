// model/fee.go
package model

import "time"

type FeeEntryType string

const (
	FeeAccrued FeeEntryType = "FEE_ACCRUED"
	FeePaid    FeeEntryType = "FEE_PAID"
)

type FeeLedgerEntry struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	RentalID     *int64       `json:"rental_id,omitempty"`
	EntryType    FeeEntryType `json:"entry_type"`
	Amount       float64      `json:"amount"`
	BalanceAfter float64      `json:"balance_after"`
	CreatedAt    time.Time    `json:"created_at"`
}
