// service/rental/rentalService.go
package rental

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"libraryrental/model"
	rentalrepo "libraryrental/repository/rental"
	"libraryrental/service/availability"
	"libraryrental/service/eligibility"
	"libraryrental/util/apperr"
	"libraryrental/util/metrics"
	"libraryrental/util/validate"
)

// dueHour is the fixed hour-of-day every due date is normalized to.
const dueHour = 20

// CreateParams = repository shape
type CreateParams = rentalrepo.CreateParams

// UpdateParams carries the mutable rental fields. A nil field keeps
// the stored value, so a fee-only update cannot wipe a return date and
// a return-only update cannot wipe an accrued fee.
type UpdateParams struct {
	ID         int64
	DueDate    *time.Time
	ReturnDate *time.Time
	LateFee    *float64
}

type Repo interface {
	Create(ctx context.Context, p CreateParams) (*model.Rental, error)
	ByID(ctx context.Context, id int64) (*model.Rental, error)
	UpdateMutable(ctx context.Context, r *model.Rental, closing bool) error
	SoftDelete(ctx context.Context, r *model.Rental, wasOpen bool) error
	Recover(ctx context.Context, r *model.Rental, reopen bool, eligible func(u *model.User) error) error
	HardDelete(ctx context.Context, r *model.Rental, wasOpen bool) error
	List(ctx context.Context) ([]model.Rental, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Rental, error)
	ByRentalDate(ctx context.Context, ts time.Time) ([]model.Rental, error)
	ByRentalDay(ctx context.Context, day time.Time) ([]model.Rental, error)
	Overdue(ctx context.Context, now time.Time) ([]model.Rental, error)
}

type Users interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
}

type Items interface {
	ByID(ctx context.Context, id int64) (*model.Item, error)
}

type Service interface {
	// Create opens a rental: availability first, then eligibility,
	// both re-checked inside the store transaction.
	Create(ctx context.Context, userID, itemID int64) (*model.Rental, error)

	// Update persists the mutable fields (due date, return date, late
	// fee); setting a return date closes the rental. Omitted fields
	// keep their stored values.
	Update(ctx context.Context, p *UpdateParams) error

	// Delete soft-deletes; cancelling an open rental frees its copy.
	Delete(ctx context.Context, r *model.Rental) error

	// Recover clears the soft-delete flag; reopening an unreturned
	// rental re-claims its copy.
	Recover(ctx context.Context, r *model.Rental) error

	// HardDelete permanently removes the row and, for an unresolved
	// rental, puts the copy back on the shelf.
	HardDelete(ctx context.Context, r *model.Rental) error

	// Return closes an ACTIVE rental owned by userID as of now.
	Return(ctx context.Context, userID, rentalID int64) error

	Overdue(ctx context.Context) ([]model.Rental, error)
	All(ctx context.Context) ([]model.Rental, error)
	ByID(ctx context.Context, id int64) (*model.Rental, error)
	ByRentalDate(ctx context.Context, ts time.Time) ([]model.Rental, error)
	ByRentalDay(ctx context.Context, day time.Time) ([]model.Rental, error)
	MyHistory(ctx context.Context, userID int64) ([]model.Rental, error)
}

type service struct {
	r     Repo
	users Users
	items Items
	cache *availability.Cache
	now   func() time.Time
}

func New(r Repo, users Users, items Items, cache *availability.Cache) Service {
	return &service{r: r, users: users, items: items, cache: cache, now: time.Now}
}

// dueDate adds the item's loan period and forces the fixed due hour,
// truncated to whole seconds.
func dueDate(rentalDate time.Time, allowedRentalDays int) time.Time {
	d := rentalDate.AddDate(0, 0, allowedRentalDays)
	return time.Date(d.Year(), d.Month(), d.Day(), dueHour, 0, 0, 0, d.Location())
}

func notFoundUser(id int64) error {
	return apperr.Newf(apperr.KindNotFound, "User with ID %d not found.", id)
}

func notFoundItem(id int64) error {
	return apperr.Newf(apperr.KindNotFound, "Item with ID %d not found.", id)
}

func notFoundRental(id int64) error {
	return apperr.Newf(apperr.KindNotFound, "Rental with ID %d not found.", id)
}

func noAvailableCopy(title string) error {
	return apperr.Newf(apperr.KindNotFound, "Rental creation failed: No available copy of %s found.", title)
}

func (s *service) Create(ctx context.Context, userID, itemID int64) (*model.Rental, error) {
	if err := validate.ID(userID); err != nil {
		return nil, err
	}
	if err := validate.ID(itemID); err != nil {
		return nil, err
	}

	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundUser(userID)
		}
		return nil, err
	}

	it, err := s.items.ByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundItem(itemID)
		}
		return nil, err
	}

	// Availability before eligibility: an unfulfillable request fails
	// the same way no matter who asks.
	if !it.Available || s.cache.AvailableCount(it.Title) == 0 {
		metrics.RentalsRefused.WithLabelValues(string(apperr.KindNotFound)).Inc()
		return nil, noAvailableCopy(it.Title)
	}
	if err := eligibility.Check(u); err != nil {
		metrics.RentalsRefused.WithLabelValues(string(apperr.KindRentalNotAllowed)).Inc()
		return nil, err
	}

	rentalDate := s.now().Truncate(time.Second)

	rt, err := s.r.Create(ctx, CreateParams{
		UserID:     userID,
		ItemID:     itemID,
		ItemTitle:  it.Title,
		RentalDate: rentalDate,
		DueDate:    dueDate(rentalDate, it.AllowedRentalDays),
		Eligible:   eligibility.Check,
	})
	if err != nil {
		switch {
		case errors.Is(err, rentalrepo.ErrNoAvailableCopy):
			metrics.RentalsRefused.WithLabelValues(string(apperr.KindNotFound)).Inc()
			return nil, noAvailableCopy(it.Title)
		case apperr.KindOf(err) == apperr.KindRentalNotAllowed:
			// The re-check against the locked row already carries its
			// reason; surface it as-is.
			metrics.RentalsRefused.WithLabelValues(string(apperr.KindRentalNotAllowed)).Inc()
			return nil, err
		case errors.Is(err, rentalrepo.ErrNotEligible):
			// The guarded increment only refuses on capacity, so this
			// is the one reason it can carry.
			metrics.RentalsRefused.WithLabelValues(string(apperr.KindRentalNotAllowed)).Inc()
			return nil, eligibility.Refusal(eligibility.ReasonMaxRentalsExceeded)
		case errors.Is(err, sql.ErrNoRows):
			return nil, notFoundUser(userID)
		}
		return nil, err
	}

	if cerr := s.cache.OnRentalCreated(it.Title); cerr != nil {
		return nil, cerr
	}
	metrics.RentalsCreated.Inc()
	return rt, nil
}

func (s *service) Update(ctx context.Context, p *UpdateParams) error {
	if p == nil {
		return apperr.Wrap(apperr.OpUpdate, apperr.New(apperr.KindNullEntity, "update must not be nil"))
	}
	if err := validate.ID(p.ID); err != nil {
		return apperr.Wrap(apperr.OpUpdate, err)
	}
	if p.LateFee != nil {
		if err := validate.Monetary(*p.LateFee); err != nil {
			return apperr.Wrap(apperr.OpUpdate, err)
		}
	}

	current, err := s.r.ByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpUpdate, notFoundRental(p.ID))
		}
		return apperr.Wrap(apperr.OpUpdate, err)
	}

	if p.ReturnDate != nil && p.ReturnDate.Before(current.RentalDate) {
		return apperr.Wrap(apperr.OpUpdate, apperr.New(apperr.KindInvalidDate,
			"return date must not precede the rental date"))
	}

	// Identity and snapshot fields stay as stored; only the provided
	// mutable fields move. A rental cannot be un-returned through
	// Update: once set, the return date only moves, never clears.
	upd := *current
	if p.DueDate != nil {
		upd.DueDate = *p.DueDate
	}
	if p.ReturnDate != nil {
		upd.ReturnDate = p.ReturnDate
	}
	if p.LateFee != nil {
		upd.LateFee = *p.LateFee
	}

	closing := current.Open() && p.ReturnDate != nil
	if err := s.r.UpdateMutable(ctx, &upd, closing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpUpdate, notFoundRental(p.ID))
		}
		return apperr.Wrap(apperr.OpUpdate, err)
	}

	if closing {
		s.cache.OnRentalClosed(current.ItemTitle)
		metrics.RentalsClosed.Inc()
	}
	return nil
}

func (s *service) Delete(ctx context.Context, r *model.Rental) error {
	if r == nil {
		return apperr.Wrap(apperr.OpDelete, apperr.New(apperr.KindNullEntity, "rental must not be nil"))
	}
	if err := validate.ID(r.ID); err != nil {
		return apperr.Wrap(apperr.OpDelete, err)
	}

	current, err := s.r.ByID(ctx, r.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFoundRental(r.ID))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	// Deleting an already-deleted rental re-asserts the flag and is
	// not an error.
	wasOpen := current.Open()
	if err := s.r.SoftDelete(ctx, current, wasOpen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFoundRental(r.ID))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	if wasOpen {
		s.cache.OnRentalClosed(current.ItemTitle)
		metrics.RentalsClosed.Inc()
	}
	return nil
}

func (s *service) Recover(ctx context.Context, r *model.Rental) error {
	if r == nil {
		return apperr.Wrap(apperr.OpRecover, apperr.New(apperr.KindNullEntity, "rental must not be nil"))
	}
	if err := validate.ID(r.ID); err != nil {
		return apperr.Wrap(apperr.OpRecover, err)
	}

	current, err := s.r.ByID(ctx, r.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpRecover, notFoundRental(r.ID))
		}
		return apperr.Wrap(apperr.OpRecover, err)
	}

	// Recovering a never-deleted rental is a no-op success.
	if !current.Deleted {
		return nil
	}

	reopen := current.ReturnDate == nil
	if err := s.r.Recover(ctx, current, reopen, eligibility.Check); err != nil {
		switch {
		case errors.Is(err, rentalrepo.ErrNoAvailableCopy):
			return apperr.Wrap(apperr.OpRecover, apperr.Newf(apperr.KindNotFound,
				"Rental recovery failed: No available copy of %s found.", current.ItemTitle))
		case apperr.KindOf(err) == apperr.KindRentalNotAllowed:
			return apperr.Wrap(apperr.OpRecover, err)
		case errors.Is(err, rentalrepo.ErrNotEligible):
			return apperr.Wrap(apperr.OpRecover, eligibility.Refusal(eligibility.ReasonMaxRentalsExceeded))
		case errors.Is(err, sql.ErrNoRows):
			return apperr.Wrap(apperr.OpRecover, notFoundRental(r.ID))
		}
		return apperr.Wrap(apperr.OpRecover, err)
	}

	if reopen {
		if cerr := s.cache.OnRentalCreated(current.ItemTitle); cerr != nil {
			return apperr.Wrap(apperr.OpRecover, cerr)
		}
	}
	return nil
}

func (s *service) HardDelete(ctx context.Context, r *model.Rental) error {
	if r == nil {
		return apperr.Wrap(apperr.OpDelete, apperr.New(apperr.KindNullEntity, "rental must not be nil"))
	}
	if err := validate.ID(r.ID); err != nil {
		return apperr.Wrap(apperr.OpDelete, err)
	}

	current, err := s.r.ByID(ctx, r.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFoundRental(r.ID))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	// A soft-deleted rental already gave its copy back when it was
	// cancelled; only a live unresolved rental still holds one.
	wasOpen := current.Open()
	if err := s.r.HardDelete(ctx, current, wasOpen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFoundRental(r.ID))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	if wasOpen {
		s.cache.OnRentalClosed(current.ItemTitle)
		metrics.RentalsClosed.Inc()
	}
	return nil
}

func (s *service) Return(ctx context.Context, userID, rentalID int64) error {
	if err := validate.ID(rentalID); err != nil {
		return err
	}
	current, err := s.r.ByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundRental(rentalID)
		}
		return err
	}
	if current.UserID != userID {
		return notFoundRental(rentalID)
	}
	if !current.Open() {
		return nil
	}

	ret := s.now().Truncate(time.Second)
	return s.Update(ctx, &UpdateParams{ID: rentalID, ReturnDate: &ret})
}

func (s *service) Overdue(ctx context.Context) ([]model.Rental, error) {
	return s.r.Overdue(ctx, s.now())
}

func (s *service) All(ctx context.Context) ([]model.Rental, error) {
	return s.r.List(ctx)
}

func (s *service) ByID(ctx context.Context, id int64) (*model.Rental, error) {
	if err := validate.ID(id); err != nil {
		return nil, err
	}
	rt, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundRental(id)
		}
		return nil, err
	}
	return rt, nil
}

func (s *service) ByRentalDate(ctx context.Context, ts time.Time) ([]model.Rental, error) {
	if err := validate.DateNotFuture(ts); err != nil {
		return nil, err
	}
	return s.r.ByRentalDate(ctx, ts)
}

func (s *service) ByRentalDay(ctx context.Context, day time.Time) ([]model.Rental, error) {
	if err := validate.DateNotFuture(day); err != nil {
		return nil, err
	}
	return s.r.ByRentalDay(ctx, day)
}

func (s *service) MyHistory(ctx context.Context, userID int64) ([]model.Rental, error) {
	if err := validate.ID(userID); err != nil {
		return nil, err
	}
	return s.r.ListByUser(ctx, userID)
}
