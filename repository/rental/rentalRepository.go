// repository/rental/rentalRepository.go
package rentalrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"libraryrental/model"
)

var (
	// ErrNoAvailableCopy signals the conditional item claim matched no
	// row: every copy is already out.
	ErrNoAvailableCopy = errors.New("no available copy")

	// ErrNotEligible signals the guarded current_rentals increment
	// matched no row even though the caller's check passed.
	ErrNotEligible = errors.New("user not eligible")
)

// CreateParams carries everything the checkout transaction needs. The
// Eligible callback runs against the FOR UPDATE user snapshot so the
// decision cannot race a concurrent checkout.
type CreateParams struct {
	UserID     int64
	ItemID     int64
	ItemTitle  string
	RentalDate time.Time
	DueDate    time.Time
	Eligible   func(u *model.User) error
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
	CountOpenByItem(ctx context.Context, itemID int64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const rentalCols = `id, user_id, item_id, username, item_title,
	rental_date, due_date, return_date, late_fee, deleted`

// claimItem marks one copy unavailable only if it is currently
// available. The WHERE guard is the per-item critical section: two
// concurrent checkouts cannot both match.
func claimItem(ctx context.Context, tx *sql.Tx, itemID int64) error {
	const q = `
UPDATE items
SET available = FALSE
WHERE id = $1
AND available
AND NOT deleted`
	res, err := tx.ExecContext(ctx, q, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoAvailableCopy
	}
	return nil
}

func releaseItem(ctx context.Context, tx *sql.Tx, itemID int64) error {
	const q = `
UPDATE items
SET available = TRUE
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, itemID)
	return err
}

func lockUser(ctx context.Context, tx *sql.Tx, userID int64) (*model.User, error) {
	const q = `
SELECT id, username, email, allowed_rentals, current_rentals, late_fee, allowed_to_rent, deleted
FROM users
WHERE id = $1
FOR UPDATE`
	u := &model.User{}
	err := tx.QueryRowContext(ctx, q, userID).Scan(
		&u.ID, &u.Username, &u.Email,
		&u.AllowedRentals, &u.CurrentRentals, &u.LateFee, &u.AllowedToRent, &u.Deleted,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// incrementRentals is guarded so current_rentals can never exceed
// allowed_rentals; allowed_to_rent is recomputed from the new count in
// the same statement.
func incrementRentals(ctx context.Context, tx *sql.Tx, userID int64) error {
	const q = `
UPDATE users
SET current_rentals = current_rentals + 1,
    allowed_to_rent = (late_fee = 0 AND current_rentals + 1 < allowed_rentals AND NOT deleted)
WHERE id = $1
AND current_rentals < allowed_rentals
AND NOT deleted`
	res, err := tx.ExecContext(ctx, q, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotEligible
	}
	return nil
}

func decrementRentals(ctx context.Context, tx *sql.Tx, userID int64) error {
	const q = `
UPDATE users
SET current_rentals = current_rentals - 1,
    allowed_to_rent = (late_fee = 0 AND current_rentals - 1 < allowed_rentals AND NOT deleted)
WHERE id = $1
AND current_rentals > 0`
	_, err := tx.ExecContext(ctx, q, userID)
	return err
}

func (r *repo) Create(ctx context.Context, p CreateParams) (rental *model.Rental, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = claimItem(ctx, tx, p.ItemID); err != nil {
		return nil, err
	}

	u, err := lockUser(ctx, tx, p.UserID)
	if err != nil {
		return nil, err
	}
	if p.Eligible != nil {
		if err = p.Eligible(u); err != nil {
			return nil, err
		}
	}

	const ins = `
INSERT INTO rentals (user_id, item_id, username, item_title, rental_date, due_date, late_fee)
VALUES ($1,$2,$3,$4,$5,$6,0)
RETURNING id`
	var id int64
	if err = tx.QueryRowContext(ctx, ins,
		p.UserID, p.ItemID, u.Username, p.ItemTitle, p.RentalDate, p.DueDate,
	).Scan(&id); err != nil {
		return nil, err
	}

	if err = incrementRentals(ctx, tx, p.UserID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Rental{
		ID:         id,
		UserID:     p.UserID,
		ItemID:     p.ItemID,
		Username:   u.Username,
		ItemTitle:  p.ItemTitle,
		RentalDate: p.RentalDate,
		DueDate:    p.DueDate,
	}, nil
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Rental, error) {
	const q = `
SELECT ` + rentalCols + `
FROM rentals
WHERE id = $1`
	rt := &model.Rental{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rt.ID, &rt.UserID, &rt.ItemID, &rt.Username, &rt.ItemTitle,
		&rt.RentalDate, &rt.DueDate, &rt.ReturnDate, &rt.LateFee, &rt.Deleted,
	)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// UpdateMutable persists the three mutable fields. When closing is set
// the rental just gained a return date, so the copy goes back on the
// shelf and the borrower's open count drops.
func (r *repo) UpdateMutable(ctx context.Context, rt *model.Rental, closing bool) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
UPDATE rentals
SET due_date = $2,
    return_date = $3,
    late_fee = $4
WHERE id = $1`
	res, err := tx.ExecContext(ctx, q, rt.ID, rt.DueDate, rt.ReturnDate, rt.LateFee)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if closing {
		if err = releaseItem(ctx, tx, rt.ItemID); err != nil {
			return err
		}
		if err = decrementRentals(ctx, tx, rt.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SoftDelete flips the flag; cancelling an open rental also frees its
// copy.
func (r *repo) SoftDelete(ctx context.Context, rt *model.Rental, wasOpen bool) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
UPDATE rentals
SET deleted = TRUE
WHERE id = $1`
	res, err := tx.ExecContext(ctx, q, rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if wasOpen {
		if err = releaseItem(ctx, tx, rt.ItemID); err != nil {
			return err
		}
		if err = decrementRentals(ctx, tx, rt.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Recover clears the flag; reopening an unreturned rental must re-claim
// its copy and re-check the borrower under lock.
func (r *repo) Recover(ctx context.Context, rt *model.Rental, reopen bool, eligible func(u *model.User) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
UPDATE rentals
SET deleted = FALSE
WHERE id = $1`
	res, err := tx.ExecContext(ctx, q, rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if reopen {
		if err = claimItem(ctx, tx, rt.ItemID); err != nil {
			return err
		}
		u, lerr := lockUser(ctx, tx, rt.UserID)
		if lerr != nil {
			err = lerr
			return err
		}
		if eligible != nil {
			if err = eligible(u); err != nil {
				return err
			}
		}
		if err = incrementRentals(ctx, tx, rt.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *repo) HardDelete(ctx context.Context, rt *model.Rental, wasOpen bool) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `DELETE FROM rentals WHERE id = $1`
	res, err := tx.ExecContext(ctx, q, rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if wasOpen {
		if err = releaseItem(ctx, tx, rt.ItemID); err != nil {
			return err
		}
		if err = decrementRentals(ctx, tx, rt.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *repo) List(ctx context.Context) ([]model.Rental, error) {
	const q = `
SELECT ` + rentalCols + `
FROM rentals
ORDER BY id`
	return r.queryMany(ctx, q)
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Rental, error) {
	const q = `
SELECT ` + rentalCols + `
FROM rentals
WHERE user_id = $1
ORDER BY rental_date DESC, id DESC`
	return r.queryMany(ctx, q, userID)
}

func (r *repo) ByRentalDate(ctx context.Context, ts time.Time) ([]model.Rental, error) {
	const q = `
SELECT ` + rentalCols + `
FROM rentals
WHERE rental_date = $1
ORDER BY id`
	return r.queryMany(ctx, q, ts)
}

func (r *repo) ByRentalDay(ctx context.Context, day time.Time) ([]model.Rental, error) {
	const q = `
SELECT ` + rentalCols + `
FROM rentals
WHERE rental_date::date = $1::date
ORDER BY id`
	return r.queryMany(ctx, q, day)
}

func (r *repo) Overdue(ctx context.Context, now time.Time) ([]model.Rental, error) {
	const q = `
SELECT ` + rentalCols + `
FROM rentals
WHERE NOT deleted
AND return_date IS NULL
AND due_date < $1
ORDER BY due_date ASC`
	return r.queryMany(ctx, q, now)
}

func (r *repo) CountOpenByItem(ctx context.Context, itemID int64) (int64, error) {
	const q = `
SELECT COUNT(*)
FROM rentals
WHERE item_id = $1
AND NOT deleted
AND return_date IS NULL`
	var n int64
	err := r.db.QueryRowContext(ctx, q, itemID).Scan(&n)
	return n, err
}

func (r *repo) queryMany(ctx context.Context, q string, args ...any) ([]model.Rental, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Rental
	for rows.Next() {
		var rt model.Rental
		if err := rows.Scan(
			&rt.ID, &rt.UserID, &rt.ItemID, &rt.Username, &rt.ItemTitle,
			&rt.RentalDate, &rt.DueDate, &rt.ReturnDate, &rt.LateFee, &rt.Deleted,
		); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
