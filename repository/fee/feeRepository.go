// repository/fee/feeRepository.go
package feerepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"libraryrental/model"
)

// ErrOverpay signals the guarded fee deduction matched no row: the
// payment exceeds the outstanding balance.
var ErrOverpay = errors.New("payment exceeds outstanding late fee")

type Repo interface {
	Pay(ctx context.Context, userID int64, amount float64) (balanceAfter float64, err error)
	Ledger(ctx context.Context, userID int64) ([]model.FeeLedgerEntry, error)
	AccrueOverdue(ctx context.Context, now time.Time, perDay float64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

// Pay deducts amount from the borrower's outstanding fee. Only deduct
// if sufficient; allowed_to_rent is recomputed from the new balance in
// the same statement.
func (r *repo) Pay(ctx context.Context, userID int64, amount float64) (balanceAfter float64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the borrower first so a missing or deleted user surfaces as
	// sql.ErrNoRows instead of masquerading as an overpay.
	var outstanding float64
	const sel = `
SELECT late_fee
FROM users
WHERE id = $1
AND NOT deleted
FOR UPDATE`
	if err = tx.QueryRowContext(ctx, sel, userID).Scan(&outstanding); err != nil {
		return 0, err
	}
	if outstanding < amount {
		err = ErrOverpay
		return 0, err
	}

	const q = `
UPDATE users
SET late_fee = late_fee - $2,
    allowed_to_rent = (late_fee - $2 = 0 AND current_rentals < allowed_rentals AND NOT deleted)
WHERE id = $1
AND late_fee >= $2
RETURNING late_fee`
	if err = tx.QueryRowContext(ctx, q, userID, amount).Scan(&balanceAfter); err != nil {
		return 0, err
	}

	const ins = `
INSERT INTO fee_ledger (user_id, entry_type, amount, balance_after)
VALUES ($1, 'FEE_PAID', $2, $3)`
	if _, err = tx.ExecContext(ctx, ins, userID, amount, balanceAfter); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

func (r *repo) Ledger(ctx context.Context, userID int64) ([]model.FeeLedgerEntry, error) {
	const q = `
SELECT id, user_id, rental_id, entry_type, amount, balance_after, created_at
FROM fee_ledger
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FeeLedgerEntry
	for rows.Next() {
		var e model.FeeLedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.RentalID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AccrueOverdue brings every overdue open rental's late fee up to
// days-overdue * perDay, mirrors the deltas onto the borrowers and
// writes one ledger row per touched rental. Returns the number of
// rentals whose fee moved.
func (r *repo) AccrueOverdue(ctx context.Context, now time.Time, perDay float64) (int64, error) {
	const q = `
WITH od AS (
    SELECT id, user_id, late_fee AS old_fee,
           GREATEST(1, CEIL(EXTRACT(EPOCH FROM ($1::timestamptz - due_date)) / 86400))::int * $2::numeric AS fee
    FROM rentals
    WHERE NOT deleted
    AND return_date IS NULL
    AND due_date < $1
    FOR UPDATE
), upd AS (
    UPDATE rentals r
    SET late_fee = od.fee
    FROM od
    WHERE r.id = od.id
    AND od.fee > od.old_fee
    RETURNING r.id, r.user_id, od.fee - od.old_fee AS delta
), agg AS (
    SELECT user_id, SUM(delta) AS delta
    FROM upd
    GROUP BY user_id
), uu AS (
    UPDATE users u
    SET late_fee = u.late_fee + agg.delta,
        allowed_to_rent = FALSE
    FROM agg
    WHERE u.id = agg.user_id
    RETURNING u.id, u.late_fee
)
INSERT INTO fee_ledger (user_id, rental_id, entry_type, amount, balance_after)
SELECT upd.user_id, upd.id, 'FEE_ACCRUED', upd.delta, uu.late_fee
FROM upd
JOIN uu ON uu.id = upd.user_id`
	res, err := r.db.ExecContext(ctx, q, now, perDay)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
