// service/eligibility/eligibility.go
package eligibility

import (
	"libraryrental/model"
	"libraryrental/util/apperr"
)

// Reason names why a borrower may not open a new rental.
type Reason string

const (
	ReasonUserDeleted        Reason = "USER_DELETED"
	ReasonUnpaidLateFee      Reason = "UNPAID_LATE_FEE"
	ReasonMaxRentalsExceeded Reason = "MAX_RENTALS_EXCEEDED"
)

// refusalMsg matches what callers surface verbatim.
const refusalMsg = "User not allowed to rent either due to already renting at maximum capacity or having a late fee."

// Refusal builds the typed error surfaced for a given reason.
func Refusal(reason Reason) error {
	return &apperr.Error{
		Kind: apperr.KindRentalNotAllowed,
		Msg:  refusalMsg,
		Err:  apperr.New(apperr.KindRentalNotAllowed, string(reason)),
	}
}

// Evaluate is pure: deleted first, then fee, then capacity. Run it
// against the freshest snapshot available — for checkout that means
// the row locked inside the store transaction.
func Evaluate(u *model.User) (Reason, bool) {
	switch {
	case u.Deleted:
		return ReasonUserDeleted, false
	case u.LateFee != 0:
		return ReasonUnpaidLateFee, false
	case u.CurrentRentals >= u.AllowedRentals:
		return ReasonMaxRentalsExceeded, false
	default:
		return "", true
	}
}

// Check wraps Evaluate into the error form lifecycle calls thread
// through their transactions.
func Check(u *model.User) error {
	if reason, ok := Evaluate(u); !ok {
		return Refusal(reason)
	}
	return nil
}
