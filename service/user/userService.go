package usersvc

import (
	"context"
	"database/sql"
	"errors"

	"libraryrental/model"
	"libraryrental/service/availability"
	"libraryrental/util/apperr"
	"libraryrental/util/validate"
)

type Repo interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
	ByIDAnyState(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetDeleted(ctx context.Context, id int64, deleted bool) error
	HardDelete(ctx context.Context, id int64) error
}

type Service interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id int64) error
	Recover(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
}

type service struct {
	r     Repo
	cache *availability.Cache
}

func New(r Repo, cache *availability.Cache) Service { return &service{r: r, cache: cache} }

func notFound(id int64) error {
	return apperr.Newf(apperr.KindNotFound, "User with ID %d not found.", id)
}

func (s *service) ByID(ctx context.Context, id int64) (*model.User, error) {
	if err := validate.ID(id); err != nil {
		return nil, err
	}
	u, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) List(ctx context.Context) ([]model.User, error) {
	return s.r.List(ctx)
}

// Delete soft-deletes the account. allowed_to_rent drops with it, so
// open rentals stay on the books but nothing new can be checked out.
func (s *service) Delete(ctx context.Context, id int64) error {
	if err := validate.ID(id); err != nil {
		return apperr.Wrap(apperr.OpDelete, err)
	}
	if err := s.r.SetDeleted(ctx, id, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFound(id))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}
	return nil
}

func (s *service) Recover(ctx context.Context, id int64) error {
	if err := validate.ID(id); err != nil {
		return apperr.Wrap(apperr.OpRecover, err)
	}
	if err := s.r.SetDeleted(ctx, id, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpRecover, notFound(id))
		}
		return apperr.Wrap(apperr.OpRecover, err)
	}
	return nil
}

// HardDelete refuses while the borrower still holds copies, then
// removes the row and frees the username/email for reuse.
func (s *service) HardDelete(ctx context.Context, id int64) error {
	if err := validate.ID(id); err != nil {
		return apperr.Wrap(apperr.OpDelete, err)
	}

	u, err := s.r.ByIDAnyState(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFound(id))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}
	if u.CurrentRentals > 0 {
		return apperr.Wrap(apperr.OpDelete, apperr.Newf(apperr.KindRentalNotAllowed,
			"User with ID %d cannot be deleted while holding %d open rentals.", id, u.CurrentRentals))
	}

	if err := s.r.HardDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFound(id))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	s.cache.OnUserHardDeleted(u.Username, u.Email)
	return nil
}
