package auth

import (
	"context"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"libraryrental/model"
	"libraryrental/util/hash"
)

type repoMock struct {
	createFn  func(ctx context.Context, u *model.User) error
	byEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *repoMock) Create(ctx context.Context, u *model.User) error { return m.createFn(ctx, u) }
func (m *repoMock) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.byEmailFn(ctx, email)
}

type uniquenessMock struct {
	usernames map[string]bool
	emails    map[string]bool
	created   [][2]string
}

func newUniquenessMock() *uniquenessMock {
	return &uniquenessMock{usernames: map[string]bool{}, emails: map[string]bool{}}
}

func (m *uniquenessMock) UsernameTaken(u string) bool { return m.usernames[u] }
func (m *uniquenessMock) EmailTaken(e string) bool    { return m.emails[e] }
func (m *uniquenessMock) OnUserCreated(u, e string) error {
	m.usernames[u] = true
	m.emails[e] = true
	m.created = append(m.created, [2]string{u, e})
	return nil
}

func TestRegister_OK(t *testing.T) {
	repo := &repoMock{createFn: func(ctx context.Context, u *model.User) error {
		u.ID = 7
		return nil
	}}
	uniq := newUniquenessMock()
	s := New(repo, uniq, "secret")

	u, token, err := s.Register(context.Background(), model.RegisterReq{
		Username: "  karin  ",
		Email:    "Karin@Example.COM",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, "karin", u.Username)
	require.Equal(t, "karin@example.com", u.Email)
	require.Equal(t, "user", u.Role)
	require.Equal(t, model.DefaultAllowedRentals, u.AllowedRentals)
	require.NotEqual(t, "hunter22", u.PasswordHash)
	require.Equal(t, [][2]string{{"karin", "karin@example.com"}}, uniq.created)
}

func TestRegister_BadInput(t *testing.T) {
	s := New(&repoMock{}, newUniquenessMock(), "secret")

	for _, req := range []model.RegisterReq{
		{Username: "a", Email: "no-at-sign", Password: "hunter22"},
		{Username: "", Email: "a@b.c", Password: "hunter22"},
		{Username: "a", Email: "a@b.c", Password: "short"},
		{},
	} {
		_, _, err := s.Register(context.Background(), req)
		require.Equal(t, ErrBadInput, Code(err), "req %+v", req)
	}
}

func TestRegister_TakenInCache(t *testing.T) {
	uniq := newUniquenessMock()
	uniq.usernames["karin"] = true
	s := New(&repoMock{}, uniq, "secret")

	_, _, err := s.Register(context.Background(), model.RegisterReq{
		Username: "karin", Email: "new@example.com", Password: "hunter22",
	})
	require.Equal(t, ErrUsernameTaken, Code(err))

	uniq2 := newUniquenessMock()
	uniq2.emails["karin@example.com"] = true
	s = New(&repoMock{}, uniq2, "secret")

	_, _, err = s.Register(context.Background(), model.RegisterReq{
		Username: "other", Email: "karin@example.com", Password: "hunter22",
	})
	require.Equal(t, ErrEmailTaken, Code(err))
}

func TestRegister_DuplicateFromStore(t *testing.T) {
	// The cache missed a row; the unique constraint is the backstop.
	repo := &repoMock{createFn: func(ctx context.Context, u *model.User) error {
		return &pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: "users_email_key",
		}
	}}
	s := New(repo, newUniquenessMock(), "secret")

	_, _, err := s.Register(context.Background(), model.RegisterReq{
		Username: "karin", Email: "karin@example.com", Password: "hunter22",
	})
	require.Equal(t, ErrEmailTaken, Code(err))
}

func TestLogin(t *testing.T) {
	hashed, err := hash.HashPassword("hunter22")
	require.NoError(t, err)

	stored := &model.User{ID: 7, Email: "karin@example.com", PasswordHash: hashed, Role: "user"}
	repo := &repoMock{byEmailFn: func(ctx context.Context, email string) (*model.User, error) {
		if email == stored.Email {
			return stored, nil
		}
		return nil, nil
	}}
	s := New(repo, newUniquenessMock(), "secret")

	u, token, err := s.Login(context.Background(), model.LoginReq{Email: "Karin@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(7), u.ID)

	_, _, err = s.Login(context.Background(), model.LoginReq{Email: "karin@example.com", Password: "wrong"})
	require.Equal(t, ErrInvalidCreds, Code(err))

	_, _, err = s.Login(context.Background(), model.LoginReq{Email: "nobody@example.com", Password: "hunter22"})
	require.Equal(t, ErrInvalidCreds, Code(err))

	_, _, err = s.Login(context.Background(), model.LoginReq{})
	require.Equal(t, ErrBadInput, Code(err))
}
