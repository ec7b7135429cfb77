// util/validate/validate.go
//
// Entity-level validation rules shared by every service. Pure
// functions, no I/O; each returns a typed apperr failure so callers
// can reject input before touching the store.
package validate

import (
	"time"

	"libraryrental/util/apperr"
)

func ID(id int64) error {
	if id <= 0 {
		return apperr.Newf(apperr.KindInvalidID, "invalid ID: %d", id)
	}
	return nil
}

func Name(s string, maxLen int) error {
	if s == "" {
		return apperr.New(apperr.KindInvalidName, "name must not be empty")
	}
	if len(s) > maxLen {
		return apperr.Newf(apperr.KindInvalidName, "name longer than %d characters", maxLen)
	}
	return nil
}

func DateNotFuture(t time.Time) error {
	if t.IsZero() {
		return apperr.New(apperr.KindInvalidDate, "date must be set")
	}
	if t.After(time.Now()) {
		return apperr.Newf(apperr.KindInvalidDate, "date %s is in the future", t.Format(time.RFC3339))
	}
	return nil
}

func Monetary(x float64) error {
	if x < 0 {
		return apperr.Newf(apperr.KindInvalidAmount, "amount must not be negative: %.2f", x)
	}
	return nil
}
