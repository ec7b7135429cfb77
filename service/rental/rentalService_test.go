// service/rental/rental_service_test.go
package rental

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"libraryrental/model"
	rentalrepo "libraryrental/repository/rental"
	"libraryrental/service/availability"
	"libraryrental/service/eligibility"
	"libraryrental/util/apperr"
)

type repoMock struct {
	createFn     func(ctx context.Context, p CreateParams) (*model.Rental, error)
	byIDFn       func(ctx context.Context, id int64) (*model.Rental, error)
	updateFn     func(ctx context.Context, r *model.Rental, closing bool) error
	softDeleteFn func(ctx context.Context, r *model.Rental, wasOpen bool) error
	recoverFn    func(ctx context.Context, r *model.Rental, reopen bool, eligible func(u *model.User) error) error
	hardDeleteFn func(ctx context.Context, r *model.Rental, wasOpen bool) error
	overdueFn    func(ctx context.Context, now time.Time) ([]model.Rental, error)
}

func (m *repoMock) Create(ctx context.Context, p CreateParams) (*model.Rental, error) {
	return m.createFn(ctx, p)
}
func (m *repoMock) ByID(ctx context.Context, id int64) (*model.Rental, error) {
	return m.byIDFn(ctx, id)
}
func (m *repoMock) UpdateMutable(ctx context.Context, r *model.Rental, closing bool) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, r, closing)
}
func (m *repoMock) SoftDelete(ctx context.Context, r *model.Rental, wasOpen bool) error {
	if m.softDeleteFn == nil {
		return nil
	}
	return m.softDeleteFn(ctx, r, wasOpen)
}
func (m *repoMock) Recover(ctx context.Context, r *model.Rental, reopen bool, eligible func(u *model.User) error) error {
	if m.recoverFn == nil {
		return nil
	}
	return m.recoverFn(ctx, r, reopen, eligible)
}
func (m *repoMock) HardDelete(ctx context.Context, r *model.Rental, wasOpen bool) error {
	if m.hardDeleteFn == nil {
		return nil
	}
	return m.hardDeleteFn(ctx, r, wasOpen)
}
func (m *repoMock) List(ctx context.Context) ([]model.Rental, error) { return nil, nil }
func (m *repoMock) ListByUser(ctx context.Context, userID int64) ([]model.Rental, error) {
	return nil, nil
}
func (m *repoMock) ByRentalDate(ctx context.Context, ts time.Time) ([]model.Rental, error) {
	return nil, nil
}
func (m *repoMock) ByRentalDay(ctx context.Context, day time.Time) ([]model.Rental, error) {
	return nil, nil
}
func (m *repoMock) Overdue(ctx context.Context, now time.Time) ([]model.Rental, error) {
	if m.overdueFn == nil {
		return nil, nil
	}
	return m.overdueFn(ctx, now)
}

type usersMock struct {
	byIDFn func(ctx context.Context, id int64) (*model.User, error)
}

func (m *usersMock) ByID(ctx context.Context, id int64) (*model.User, error) {
	return m.byIDFn(ctx, id)
}

type itemsMock struct {
	byIDFn func(ctx context.Context, id int64) (*model.Item, error)
}

func (m *itemsMock) ByID(ctx context.Context, id int64) (*model.Item, error) {
	return m.byIDFn(ctx, id)
}

// fixture wires a service around one mutable user, a set of items and
// a freshly seeded cache, with the store simulated in memory.
type fixture struct {
	svc     *service
	user    *model.User
	items   map[int64]*model.Item
	rentals map[int64]*model.Rental
	cache   *availability.Cache
	nextID  int64
}

func newFixture(t *testing.T, itemCount int) *fixture {
	t.Helper()

	f := &fixture{
		user: &model.User{
			ID:             1,
			Username:       "karin",
			AllowedRentals: 5,
		},
		items:   map[int64]*model.Item{},
		rentals: map[int64]*model.Rental{},
		cache:   availability.NewCache(),
	}
	for i := 1; i <= itemCount; i++ {
		id := int64(i)
		title := fmt.Sprintf("Title-%d", i)
		f.items[id] = &model.Item{
			ID:                id,
			Title:             title,
			Barcode:           fmt.Sprintf("B-%d", i),
			AllowedRentalDays: 14,
			Available:         true,
		}
		if err := f.cache.OnItemCreated(title, f.items[id].Barcode); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	repo := &repoMock{
		createFn: func(ctx context.Context, p CreateParams) (*model.Rental, error) {
			it := f.items[p.ItemID]
			if it == nil || !it.Available {
				return nil, rentalrepo.ErrNoAvailableCopy
			}
			if p.Eligible != nil {
				if err := p.Eligible(f.user); err != nil {
					return nil, err
				}
			}
			it.Available = false
			f.user.CurrentRentals++
			f.nextID++
			rt := &model.Rental{
				ID:         f.nextID,
				UserID:     p.UserID,
				ItemID:     p.ItemID,
				Username:   f.user.Username,
				ItemTitle:  p.ItemTitle,
				RentalDate: p.RentalDate,
				DueDate:    p.DueDate,
			}
			f.rentals[rt.ID] = rt
			return rt, nil
		},
		byIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			rt, ok := f.rentals[id]
			if !ok {
				return nil, sql.ErrNoRows
			}
			cp := *rt
			return &cp, nil
		},
		updateFn: func(ctx context.Context, r *model.Rental, closing bool) error {
			rt, ok := f.rentals[r.ID]
			if !ok {
				return sql.ErrNoRows
			}
			rt.DueDate = r.DueDate
			rt.ReturnDate = r.ReturnDate
			rt.LateFee = r.LateFee
			if closing {
				f.items[rt.ItemID].Available = true
				f.user.CurrentRentals--
			}
			return nil
		},
		softDeleteFn: func(ctx context.Context, r *model.Rental, wasOpen bool) error {
			rt, ok := f.rentals[r.ID]
			if !ok {
				return sql.ErrNoRows
			}
			rt.Deleted = true
			if wasOpen {
				f.items[rt.ItemID].Available = true
				f.user.CurrentRentals--
			}
			return nil
		},
		recoverFn: func(ctx context.Context, r *model.Rental, reopen bool, eligible func(u *model.User) error) error {
			rt, ok := f.rentals[r.ID]
			if !ok {
				return sql.ErrNoRows
			}
			if reopen {
				it := f.items[rt.ItemID]
				if !it.Available {
					return rentalrepo.ErrNoAvailableCopy
				}
				if eligible != nil {
					if err := eligible(f.user); err != nil {
						return err
					}
				}
				it.Available = false
				f.user.CurrentRentals++
			}
			rt.Deleted = false
			return nil
		},
		hardDeleteFn: func(ctx context.Context, r *model.Rental, wasOpen bool) error {
			rt, ok := f.rentals[r.ID]
			if !ok {
				return sql.ErrNoRows
			}
			if wasOpen {
				f.items[rt.ItemID].Available = true
				f.user.CurrentRentals--
			}
			delete(f.rentals, r.ID)
			return nil
		},
	}

	users := &usersMock{byIDFn: func(ctx context.Context, id int64) (*model.User, error) {
		if id != f.user.ID {
			return nil, sql.ErrNoRows
		}
		cp := *f.user
		return &cp, nil
	}}
	items := &itemsMock{byIDFn: func(ctx context.Context, id int64) (*model.Item, error) {
		it, ok := f.items[id]
		if !ok {
			return nil, sql.ErrNoRows
		}
		cp := *it
		return &cp, nil
	}}

	f.svc = New(repo, users, items, f.cache).(*service)
	return f
}

func TestCreate_InvalidIDs(t *testing.T) {
	f := newFixture(t, 1)
	if _, err := f.svc.Create(context.Background(), 0, 1); apperr.KindOf(err) != apperr.KindInvalidID {
		t.Fatalf("want InvalidID, got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), 1, -3); apperr.KindOf(err) != apperr.KindInvalidID {
		t.Fatalf("want InvalidID, got %v", err)
	}
}

func TestCreate_UserNotFound(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.svc.Create(context.Background(), 99, 1)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
	if got, want := err.Error(), "User with ID 99 not found."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCreate_MaxRentals(t *testing.T) {
	// Scenario: quota of 5, five distinct available items, then one
	// more attempt.
	f := newFixture(t, 6)
	for i := 1; i <= 5; i++ {
		rt, err := f.svc.Create(context.Background(), 1, int64(i))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if rt.Username != "karin" || rt.ItemTitle == "" {
			t.Fatalf("rental %d not fully populated: %+v", i, rt)
		}
	}
	_, err := f.svc.Create(context.Background(), 1, 6)
	if apperr.KindOf(err) != apperr.KindRentalNotAllowed {
		t.Fatalf("6th create: want RentalNotAllowed, got %v", err)
	}
	if f.user.CurrentRentals != 5 {
		t.Fatalf("current rentals = %d, want 5", f.user.CurrentRentals)
	}
}

func TestCreate_ItemUnavailable(t *testing.T) {
	f := newFixture(t, 1)
	f.items[1].Available = false

	_, err := f.svc.Create(context.Background(), 1, 1)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
	if got, want := err.Error(), "Rental creation failed: No available copy of Title-1 found."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCreate_UnpaidLateFee(t *testing.T) {
	f := newFixture(t, 3)
	f.user.LateFee = 1.0

	_, err := f.svc.Create(context.Background(), 1, 1)
	if apperr.KindOf(err) != apperr.KindRentalNotAllowed {
		t.Fatalf("want RentalNotAllowed, got %v", err)
	}
}

func TestCreate_DueDate(t *testing.T) {
	f := newFixture(t, 1)
	f.svc.now = func() time.Time {
		return time.Date(2023, 6, 1, 10, 0, 0, 123456789, time.UTC)
	}

	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wantRental := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	wantDue := time.Date(2023, 6, 15, 20, 0, 0, 0, time.UTC)
	if !rt.RentalDate.Equal(wantRental) {
		t.Fatalf("rental date = %v, want %v", rt.RentalDate, wantRental)
	}
	if !rt.DueDate.Equal(wantDue) {
		t.Fatalf("due date = %v, want %v", rt.DueDate, wantDue)
	}
}

func TestCreate_CacheCount(t *testing.T) {
	f := newFixture(t, 1)
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("seed count = %d", got)
	}
	if _, err := f.svc.Create(context.Background(), 1, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := f.cache.AvailableCount("Title-1"); got != 0 {
		t.Fatalf("after create count = %d, want 0", got)
	}
}

func TestUpdate_NilAndMissing(t *testing.T) {
	f := newFixture(t, 1)

	err := f.svc.Update(context.Background(), nil)
	if apperr.OpOf(err) != apperr.OpUpdate || apperr.KindOf(err) != apperr.KindNullEntity {
		t.Fatalf("nil: got %v", err)
	}

	err = f.svc.Update(context.Background(), &UpdateParams{ID: 42})
	if apperr.OpOf(err) != apperr.OpUpdate || apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("missing: got %v", err)
	}
}

func TestUpdate_ReturnBeforeRentalDate(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := rt.RentalDate.Add(-time.Hour)
	err = f.svc.Update(context.Background(), &UpdateParams{ID: rt.ID, ReturnDate: &bad})
	if apperr.OpOf(err) != apperr.OpUpdate || apperr.KindOf(err) != apperr.KindInvalidDate {
		t.Fatalf("got %v", err)
	}
	if f.rentals[rt.ID].ReturnDate != nil {
		t.Fatal("failed update must not write")
	}
}

func TestUpdate_CloseRestoresAvailability(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ret := rt.RentalDate.Add(48 * time.Hour)
	if err := f.svc.Update(context.Background(), &UpdateParams{ID: rt.ID, ReturnDate: &ret}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !f.items[1].Available {
		t.Fatal("item not back on the shelf")
	}
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("cache count = %d, want 1", got)
	}
	if f.user.CurrentRentals != 0 {
		t.Fatalf("current rentals = %d, want 0", f.user.CurrentRentals)
	}
}

func TestUpdate_FeeOnlyKeepsReturnDate(t *testing.T) {
	// Adjusting the fee on a returned rental must not reopen it.
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ret := rt.RentalDate.Add(48 * time.Hour)
	if err := f.svc.Update(context.Background(), &UpdateParams{ID: rt.ID, ReturnDate: &ret}); err != nil {
		t.Fatalf("close: %v", err)
	}

	fee := 2.5
	if err := f.svc.Update(context.Background(), &UpdateParams{ID: rt.ID, LateFee: &fee}); err != nil {
		t.Fatalf("fee update: %v", err)
	}

	got := f.rentals[rt.ID]
	if got.ReturnDate == nil || !got.ReturnDate.Equal(ret) {
		t.Fatalf("return date wiped: %+v", got)
	}
	if got.LateFee != 2.5 {
		t.Fatalf("late fee = %v, want 2.5", got.LateFee)
	}
	if f.user.CurrentRentals != 0 {
		t.Fatalf("current rentals = %d, want 0", f.user.CurrentRentals)
	}
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("cache count = %d, want 1", got)
	}
}

func TestUpdate_ReturnOnlyKeepsAccruedFee(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fee := 3.0
	if err := f.svc.Update(context.Background(), &UpdateParams{ID: rt.ID, LateFee: &fee}); err != nil {
		t.Fatalf("fee update: %v", err)
	}

	ret := rt.RentalDate.Add(72 * time.Hour)
	if err := f.svc.Update(context.Background(), &UpdateParams{ID: rt.ID, ReturnDate: &ret}); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := f.rentals[rt.ID]
	if got.LateFee != 3.0 {
		t.Fatalf("late fee = %v, want 3.0", got.LateFee)
	}
	if got.ReturnDate == nil {
		t.Fatal("rental not closed")
	}
}

func TestDelete_IdempotentAndFreesCopy(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Delete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if !f.rentals[rt.ID].Deleted {
		t.Fatal("not flagged deleted")
	}
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("cancel must free the copy; count = %d", got)
	}

	// Second delete re-asserts the flag without another release.
	if err := f.svc.Delete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("double release; count = %d", got)
	}
}

func TestDelete_NilAndMissing(t *testing.T) {
	f := newFixture(t, 1)

	err := f.svc.Delete(context.Background(), nil)
	if apperr.OpOf(err) != apperr.OpDelete || apperr.KindOf(err) != apperr.KindNullEntity {
		t.Fatalf("nil: got %v", err)
	}
	err = f.svc.Delete(context.Background(), &model.Rental{ID: 7})
	if apperr.OpOf(err) != apperr.OpDelete || apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("missing: got %v", err)
	}
}

func TestRecover_RoundTrip(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Delete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Recover(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("recover: %v", err)
	}

	got := f.rentals[rt.ID]
	if got.Deleted {
		t.Fatal("still deleted after recover")
	}
	if !got.RentalDate.Equal(rt.RentalDate) || !got.DueDate.Equal(rt.DueDate) || got.ReturnDate != nil {
		t.Fatalf("recover changed other fields: %+v", got)
	}
	if got := f.cache.AvailableCount("Title-1"); got != 0 {
		t.Fatalf("reopened rental must hold the copy; count = %d", got)
	}
	if f.user.CurrentRentals != 1 {
		t.Fatalf("current rentals = %d, want 1", f.user.CurrentRentals)
	}
}

func TestRecover_NeverDeletedIsNoop(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Recover(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("recover on live rental: %v", err)
	}
	if got := f.cache.AvailableCount("Title-1"); got != 0 {
		t.Fatalf("no-op recover must not touch the cache; count = %d", got)
	}
}

func TestRecover_CopyGone(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Delete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Someone else took the freed copy.
	f.items[1].Available = false

	err = f.svc.Recover(context.Background(), &model.Rental{ID: rt.ID})
	if apperr.OpOf(err) != apperr.OpRecover || apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("got %v", err)
	}
}

func TestHardDelete_RestoresAvailability(t *testing.T) {
	// Scenario: hard-deleting an unresolved rental puts the copy back.
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.HardDelete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, ok := f.rentals[rt.ID]; ok {
		t.Fatal("row still present")
	}
	if !f.items[1].Available {
		t.Fatal("item not available again")
	}
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("cache count = %d, want 1", got)
	}

	// Gone for good: soft delete now reports not found.
	err = f.svc.Delete(context.Background(), &model.Rental{ID: rt.ID})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("delete after hard delete: got %v", err)
	}
}

func TestHardDelete_SoftDeletedDoesNotDoubleRelease(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Delete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.HardDelete(context.Background(), &model.Rental{ID: rt.ID}); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if got := f.cache.AvailableCount("Title-1"); got != 1 {
		t.Fatalf("cache count = %d, want 1", got)
	}
	if f.user.CurrentRentals != 0 {
		t.Fatalf("current rentals = %d, want 0", f.user.CurrentRentals)
	}
}

func TestReturn_OwnerOnly(t *testing.T) {
	f := newFixture(t, 1)
	rt, err := f.svc.Create(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.svc.Return(context.Background(), 2, rt.ID)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("foreign return: got %v", err)
	}
	if err := f.svc.Return(context.Background(), 1, rt.ID); err != nil {
		t.Fatalf("owner return: %v", err)
	}
	if f.rentals[rt.ID].ReturnDate == nil {
		t.Fatal("return date not set")
	}
}

func TestOverdue_UsesClock(t *testing.T) {
	f := newFixture(t, 1)
	fixed := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	var gotNow time.Time
	f.svc.r.(*repoMock).overdueFn = func(ctx context.Context, now time.Time) ([]model.Rental, error) {
		gotNow = now
		return []model.Rental{}, nil
	}
	if _, err := f.svc.Overdue(context.Background()); err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if !gotNow.Equal(fixed) {
		t.Fatalf("overdue cutoff = %v, want %v", gotNow, fixed)
	}
}

func TestByID_Validation(t *testing.T) {
	f := newFixture(t, 1)
	if _, err := f.svc.ByID(context.Background(), 0); apperr.KindOf(err) != apperr.KindInvalidID {
		t.Fatalf("want InvalidID, got %v", err)
	}
	if _, err := f.svc.ByID(context.Background(), 9); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestCreate_InTxRefusalKeepsReason(t *testing.T) {
	// The re-check against the locked row refused on a fee the
	// pre-check missed; the surfaced error must keep that reason.
	f := newFixture(t, 1)
	f.svc.r.(*repoMock).createFn = func(ctx context.Context, p CreateParams) (*model.Rental, error) {
		return nil, p.Eligible(&model.User{AllowedRentals: 5, LateFee: 1.5})
	}

	_, err := f.svc.Create(context.Background(), 1, 1)
	if apperr.KindOf(err) != apperr.KindRentalNotAllowed {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), string(eligibility.ReasonUnpaidLateFee)) {
		t.Fatalf("reason lost: %q", err.Error())
	}
}

func TestCreate_RepoNoCopyRace(t *testing.T) {
	// The pre-check passes but the conditional claim loses the race.
	f := newFixture(t, 1)
	f.svc.r.(*repoMock).createFn = func(ctx context.Context, p CreateParams) (*model.Rental, error) {
		return nil, rentalrepo.ErrNoAvailableCopy
	}
	_, err := f.svc.Create(context.Background(), 1, 1)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("got %v", err)
	}
}
