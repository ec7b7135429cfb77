// app/echoServer/controller/httperr/httperr.go
package httperr

import (
	"net/http"

	"libraryrental/util/apperr"
)

// Status maps an error's kind to the HTTP status controllers return.
func Status(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRentalNotAllowed,
		apperr.KindDuplicateBarcode,
		apperr.KindDuplicateUsername,
		apperr.KindDuplicateEmail:
		return http.StatusConflict
	case apperr.KindInvalidID,
		apperr.KindInvalidName,
		apperr.KindInvalidDate,
		apperr.KindInvalidAmount,
		apperr.KindNullEntity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns a caller-safe message: typed failures carry their
// own text, anything else is masked.
func Message(err error) string {
	if apperr.KindOf(err) != "" {
		return err.Error()
	}
	return "internal error"
}
