// util/apperr/apperr_test.go
package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"libraryrental/util/apperr"
)

func TestKindOfWalksChain(t *testing.T) {
	inner := apperr.New(apperr.KindNotFound, "Rental with ID 7 not found.")
	wrapped := apperr.Wrap(apperr.OpDelete, inner)

	if got := apperr.KindOf(wrapped); got != apperr.KindNotFound {
		t.Fatalf("kind = %q", got)
	}
	if got := apperr.OpOf(wrapped); got != apperr.OpDelete {
		t.Fatalf("op = %q", got)
	}
	if got := wrapped.Error(); got != "delete: Rental with ID 7 not found." {
		t.Fatalf("message = %q", got)
	}
}

func TestKindOfUntyped(t *testing.T) {
	if got := apperr.KindOf(errors.New("boom")); got != "" {
		t.Fatalf("kind = %q", got)
	}
	if got := apperr.KindOf(nil); got != "" {
		t.Fatalf("kind = %q", got)
	}
	// fmt-wrapped still resolves through errors.As.
	err := fmt.Errorf("context: %w", apperr.New(apperr.KindInvalidID, "invalid ID: 0"))
	if got := apperr.KindOf(err); got != apperr.KindInvalidID {
		t.Fatalf("kind = %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if err := apperr.Wrap(apperr.OpUpdate, nil); err != nil {
		t.Fatalf("got %v", err)
	}
}

func TestNewf(t *testing.T) {
	err := apperr.Newf(apperr.KindInvalidAmount, "amount must not be negative: %.2f", -1.5)
	if err.Error() != "amount must not be negative: -1.50" {
		t.Fatalf("message = %q", err.Error())
	}
	if apperr.KindOf(err) != apperr.KindInvalidAmount {
		t.Fatalf("kind = %q", apperr.KindOf(err))
	}
}

func TestOpOfOutermostOnly(t *testing.T) {
	err := apperr.Wrap(apperr.OpRecover, apperr.Wrap(apperr.OpDelete, apperr.New(apperr.KindNotFound, "gone")))
	if got := apperr.OpOf(err); got != apperr.OpRecover {
		t.Fatalf("op = %q", got)
	}
}
