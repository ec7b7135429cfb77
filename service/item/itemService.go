package itemsvc

import (
	"context"
	"database/sql"
	"errors"

	"libraryrental/model"
	"libraryrental/service/availability"
	"libraryrental/util/apperr"
	"libraryrental/util/validate"
)

const (
	maxTitleLen   = 255
	maxBarcodeLen = 100
)

type Repo interface {
	Insert(ctx context.Context, title, barcode string, allowedRentalDays int) (int64, error)
	ByID(ctx context.Context, id int64) (*model.Item, error)
	ByIDAnyState(ctx context.Context, id int64) (*model.Item, error)
	List(ctx context.Context) ([]model.Item, error)
	SetDeleted(ctx context.Context, id int64, deleted bool) error
	HardDelete(ctx context.Context, id int64) error
}

type Rentals interface {
	CountOpenByItem(ctx context.Context, itemID int64) (int64, error)
}

type Service interface {
	Create(ctx context.Context, title, barcode string, allowedRentalDays int) (*model.Item, error)
	ByID(ctx context.Context, id int64) (*model.Item, error)
	List(ctx context.Context) ([]model.Item, error)
	Delete(ctx context.Context, id int64) error
	Recover(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
}

type service struct {
	r       Repo
	rentals Rentals
	cache   *availability.Cache
}

func New(r Repo, rentals Rentals, cache *availability.Cache) Service {
	return &service{r: r, rentals: rentals, cache: cache}
}

func notFound(id int64) error {
	return apperr.Newf(apperr.KindNotFound, "Item with ID %d not found.", id)
}

func (s *service) Create(ctx context.Context, title, barcode string, allowedRentalDays int) (*model.Item, error) {
	if err := validate.Name(title, maxTitleLen); err != nil {
		return nil, err
	}
	if err := validate.Name(barcode, maxBarcodeLen); err != nil {
		return nil, err
	}
	if allowedRentalDays <= 0 {
		allowedRentalDays = model.DefaultAllowedRentalDays
	}

	// Reserve the barcode in the cache first; a duplicate never
	// reaches the store.
	if err := s.cache.OnItemCreated(title, barcode); err != nil {
		return nil, err
	}

	id, err := s.r.Insert(ctx, title, barcode, allowedRentalDays)
	if err != nil {
		s.cache.OnItemHardDeleted(title, barcode)
		return nil, err
	}

	return &model.Item{
		ID:                id,
		Title:             title,
		Barcode:           barcode,
		AllowedRentalDays: allowedRentalDays,
		Available:         true,
	}, nil
}

func (s *service) ByID(ctx context.Context, id int64) (*model.Item, error) {
	if err := validate.ID(id); err != nil {
		return nil, err
	}
	it, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return it, nil
}

func (s *service) List(ctx context.Context) ([]model.Item, error) {
	return s.r.List(ctx)
}

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

// HardDelete refuses while an open rental still references the copy;
// otherwise it removes the row and retires the title/barcode from the
// cache.
func (s *service) HardDelete(ctx context.Context, id int64) error {
	if err := validate.ID(id); err != nil {
		return apperr.Wrap(apperr.OpDelete, err)
	}

	it, err := s.r.ByIDAnyState(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFound(id))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	open, err := s.rentals.CountOpenByItem(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.OpDelete, err)
	}
	if open > 0 {
		return apperr.Wrap(apperr.OpDelete, apperr.Newf(apperr.KindRentalNotAllowed,
			"Item with ID %d cannot be deleted while a rental is open.", id))
	}

	if err := s.r.HardDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Wrap(apperr.OpDelete, notFound(id))
		}
		return apperr.Wrap(apperr.OpDelete, err)
	}

	s.cache.OnItemHardDeleted(it.Title, it.Barcode)
	return nil
}
