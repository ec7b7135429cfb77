package usersvc

import (
	"context"
	"database/sql"
	"testing"

	"libraryrental/model"
	"libraryrental/service/availability"
	"libraryrental/util/apperr"
)

type repoMock struct {
	byIDFn       func(ctx context.Context, id int64) (*model.User, error)
	byIDAnyFn    func(ctx context.Context, id int64) (*model.User, error)
	setDeletedFn func(ctx context.Context, id int64, deleted bool) error
	hardDeleteFn func(ctx context.Context, id int64) error
}

func (m *repoMock) ByID(ctx context.Context, id int64) (*model.User, error) {
	return m.byIDFn(ctx, id)
}
func (m *repoMock) ByIDAnyState(ctx context.Context, id int64) (*model.User, error) {
	return m.byIDAnyFn(ctx, id)
}
func (m *repoMock) List(ctx context.Context) ([]model.User, error) { return nil, nil }
func (m *repoMock) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	return m.setDeletedFn(ctx, id, deleted)
}
func (m *repoMock) HardDelete(ctx context.Context, id int64) error { return m.hardDeleteFn(ctx, id) }

func TestByID(t *testing.T) {
	repo := &repoMock{byIDFn: func(ctx context.Context, id int64) (*model.User, error) {
		return nil, sql.ErrNoRows
	}}
	s := New(repo, availability.NewCache())

	_, err := s.ByID(context.Background(), 12)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("got %v", err)
	}
	if got, want := err.Error(), "User with ID 12 not found."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if _, err := s.ByID(context.Background(), 0); apperr.KindOf(err) != apperr.KindInvalidID {
		t.Fatalf("got %v", err)
	}
}

func TestSoftDeleteRecover(t *testing.T) {
	var gotID int64
	var gotFlag bool
	repo := &repoMock{setDeletedFn: func(ctx context.Context, id int64, deleted bool) error {
		gotID, gotFlag = id, deleted
		return nil
	}}
	s := New(repo, availability.NewCache())

	if err := s.Delete(context.Background(), 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotID != 4 || !gotFlag {
		t.Fatalf("delete forwarded %d/%v", gotID, gotFlag)
	}

	if err := s.Recover(context.Background(), 4); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if gotFlag {
		t.Fatal("recover must clear the flag")
	}
}

func TestHardDelete_RefusedWhileHoldingCopies(t *testing.T) {
	repo := &repoMock{byIDAnyFn: func(ctx context.Context, id int64) (*model.User, error) {
		return &model.User{ID: id, Username: "karin", Email: "karin@example.com", CurrentRentals: 2}, nil
	}}
	s := New(repo, availability.NewCache())

	err := s.HardDelete(context.Background(), 4)
	if apperr.OpOf(err) != apperr.OpDelete || apperr.KindOf(err) != apperr.KindRentalNotAllowed {
		t.Fatalf("got %v", err)
	}
}

func TestHardDelete_FreesIdentity(t *testing.T) {
	cache := availability.NewCache()
	if err := cache.OnUserCreated("karin", "karin@example.com"); err != nil {
		t.Fatal(err)
	}
	repo := &repoMock{
		byIDAnyFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "karin", Email: "karin@example.com"}, nil
		},
		hardDeleteFn: func(ctx context.Context, id int64) error { return nil },
	}
	s := New(repo, cache)

	if err := s.HardDelete(context.Background(), 4); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if cache.UsernameTaken("karin") || cache.EmailTaken("karin@example.com") {
		t.Fatal("identity not freed for reuse")
	}
}
