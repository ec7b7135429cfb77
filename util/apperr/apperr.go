// util/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so controllers can map it to a status code
// without string matching.
type Kind string

const (
	KindInvalidID         Kind = "INVALID_ID"
	KindInvalidName       Kind = "INVALID_NAME"
	KindInvalidDate       Kind = "INVALID_DATE"
	KindInvalidAmount     Kind = "INVALID_AMOUNT"
	KindNullEntity        Kind = "NULL_ENTITY"
	KindNotFound          Kind = "NOT_FOUND"
	KindRentalNotAllowed  Kind = "RENTAL_NOT_ALLOWED"
	KindDuplicateBarcode  Kind = "DUPLICATE_BARCODE"
	KindDuplicateUsername Kind = "DUPLICATE_USERNAME"
	KindDuplicateEmail    Kind = "DUPLICATE_EMAIL"
	KindConsistency       Kind = "CONSISTENCY"
)

// Op names the lifecycle operation that wrapped a failure. Callers
// branch on the outer Op and still inspect the root Kind.
type Op string

const (
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpRecover Op = "recover"
)

type Error struct {
	Op   Op
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		if e.Op != "" {
			return string(e.Op) + ": " + e.Err.Error()
		}
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with op. The Kind of the cause remains reachable
// through KindOf.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// KindOf walks the chain and returns the first non-empty Kind,
// or "" for untyped errors.
func KindOf(err error) Kind {
	for err != nil {
		var ae *Error
		if !errors.As(err, &ae) {
			return ""
		}
		if ae.Kind != "" {
			return ae.Kind
		}
		err = ae.Err
	}
	return ""
}

// OpOf returns the outermost Op tag, or "".
func OpOf(err error) Op {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Op
	}
	return ""
}
