// repository/user/userRepository.go
package userrepo

import (
	"context"
	"database/sql"

	"libraryrental/model"
)

// CacheUser feeds the uniqueness sets of the availability cache.
type CacheUser struct {
	Username string
	Email    string
}

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByID(ctx context.Context, id int64) (*model.User, error)
	ByIDAnyState(ctx context.Context, id int64) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetDeleted(ctx context.Context, id int64, deleted bool) error
	HardDelete(ctx context.Context, id int64) error
	ScanUsers(ctx context.Context) ([]CacheUser, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const userCols = `id, username, email, password_hash, role,
	allowed_rentals, current_rentals, late_fee, allowed_to_rent, deleted, created_at`

func (r *repo) Create(ctx context.Context, u *model.User) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO users(username, email, password_hash, role, allowed_rentals)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, current_rentals, late_fee, allowed_to_rent, created_at`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.AllowedRentals,
	).Scan(&u.ID, &u.CurrentRentals, &u.LateFee, &u.AllowedToRent, &u.CreatedAt)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return r.scanOne(ctx, `
        SELECT `+userCols+`
        FROM users
        WHERE id = $1
        AND NOT deleted`, id)
}

// ByIDAnyState also returns soft-deleted users; recovery needs them.
func (r *repo) ByIDAnyState(ctx context.Context, id int64) (*model.User, error) {
	return r.scanOne(ctx, `
        SELECT `+userCols+`
        FROM users
        WHERE id = $1`, id)
}

func (r *repo) scanOne(ctx context.Context, q string, arg any) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.AllowedRentals, &u.CurrentRentals, &u.LateFee, &u.AllowedToRent, &u.Deleted, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanOne(ctx, `
        SELECT `+userCols+`
        FROM users
        WHERE lower(email) = lower($1)
        AND NOT deleted`, email)
}

func (r *repo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+userCols+`
        FROM users
        WHERE NOT deleted
        ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.AllowedRentals, &u.CurrentRentals, &u.LateFee, &u.AllowedToRent, &u.Deleted, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetDeleted flips the soft-delete flag and recomputes allowed_to_rent
// in the same statement so the derived column cannot drift.
func (r *repo) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	const q = `
UPDATE users
SET deleted = $2,
    allowed_to_rent = (NOT $2 AND late_fee = 0 AND current_rentals < allowed_rentals)
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, deleted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) HardDelete(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) ScanUsers(ctx context.Context) ([]CacheUser, error) {
	const q = `
SELECT username, email
FROM users
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CacheUser
	for rows.Next() {
		var c CacheUser
		if err := rows.Scan(&c.Username, &c.Email); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
