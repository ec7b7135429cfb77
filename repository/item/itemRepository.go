// repository/item/itemRepository.go
package itemrepo

import (
	"context"
	"database/sql"

	"libraryrental/model"
)

// CacheItem is the row shape the availability cache consumes on
// startup rescans.
type CacheItem struct {
	Title     string
	Barcode   string
	Available bool
}

type Repo interface {
	Insert(ctx context.Context, title, barcode string, allowedRentalDays int) (int64, error)
	ByID(ctx context.Context, id int64) (*model.Item, error)
	ByIDAnyState(ctx context.Context, id int64) (*model.Item, error)
	List(ctx context.Context) ([]model.Item, error)
	SetDeleted(ctx context.Context, id int64, deleted bool) error
	HardDelete(ctx context.Context, id int64) error
	ScanItems(ctx context.Context) ([]CacheItem, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, title, barcode string, allowedRentalDays int) (int64, error) {
	const q = `
INSERT INTO items (title, barcode, allowed_rental_days, available)
VALUES ($1,$2,$3,TRUE)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, title, barcode, allowedRentalDays).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Item, error) {
	const q = `
SELECT id, title, barcode, allowed_rental_days, available, deleted
FROM items
WHERE id = $1
AND NOT deleted`
	return r.scanOne(ctx, q, id)
}

// ByIDAnyState also returns soft-deleted items; recovery needs them.
func (r *repo) ByIDAnyState(ctx context.Context, id int64) (*model.Item, error) {
	const q = `
SELECT id, title, barcode, allowed_rental_days, available, deleted
FROM items
WHERE id = $1`
	return r.scanOne(ctx, q, id)
}

func (r *repo) scanOne(ctx context.Context, q string, id int64) (*model.Item, error) {
	it := &model.Item{}
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&it.ID, &it.Title, &it.Barcode, &it.AllowedRentalDays, &it.Available, &it.Deleted)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *repo) List(ctx context.Context) ([]model.Item, error) {
	const q = `
SELECT id, title, barcode, allowed_rental_days, available, deleted
FROM items
WHERE NOT deleted
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Barcode, &it.AllowedRentalDays, &it.Available, &it.Deleted); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repo) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	const q = `
UPDATE items
SET deleted = $2
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
	const q = `DELETE FROM items WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ScanItems feeds the availability cache: one row per item,
// soft-deleted rows included. Deleting an item never moves its cache
// counts, so a rescan must not drop them either — otherwise a later
// recover would leave the item invisible to checkout.
func (r *repo) ScanItems(ctx context.Context) ([]CacheItem, error) {
	const q = `
SELECT title, barcode, available
FROM items
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CacheItem
	for rows.Next() {
		var c CacheItem
		if err := rows.Scan(&c.Title, &c.Barcode, &c.Available); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
