package feesvc

import (
	"context"
	"database/sql"
	"errors"

	"libraryrental/model"
	feerepo "libraryrental/repository/fee"
	"libraryrental/util/apperr"
	"libraryrental/util/metrics"
	"libraryrental/util/validate"
)

type Repo interface {
	Pay(ctx context.Context, userID int64, amount float64) (balanceAfter float64, err error)
	Ledger(ctx context.Context, userID int64) ([]model.FeeLedgerEntry, error)
}

type Service interface {
	// Pay settles part or all of a borrower's outstanding late fee and
	// returns the remaining balance.
	Pay(ctx context.Context, userID int64, amount float64) (float64, error)

	// Ledger lists fee movements for a borrower, newest first.
	Ledger(ctx context.Context, userID int64) ([]model.FeeLedgerEntry, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Pay(ctx context.Context, userID int64, amount float64) (float64, error) {
	if err := validate.ID(userID); err != nil {
		return 0, err
	}
	if err := validate.Monetary(amount); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, apperr.New(apperr.KindInvalidAmount, "payment must be positive")
	}

	bal, err := s.r.Pay(ctx, userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, feerepo.ErrOverpay):
			return 0, apperr.Newf(apperr.KindInvalidAmount,
				"payment of %.2f exceeds the outstanding late fee", amount)
		case errors.Is(err, sql.ErrNoRows):
			return 0, apperr.Newf(apperr.KindNotFound, "User with ID %d not found.", userID)
		}
		return 0, err
	}

	metrics.LateFeesPaid.Add(amount)
	return bal, nil
}

func (s *service) Ledger(ctx context.Context, userID int64) ([]model.FeeLedgerEntry, error) {
	if err := validate.ID(userID); err != nil {
		return nil, err
	}
	return s.r.Ledger(ctx, userID)
}
