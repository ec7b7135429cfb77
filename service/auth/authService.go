package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"libraryrental/model"
	"libraryrental/util/hash"
	jwtutil "libraryrental/util/jwt"
)

// errors used by controllers

type ErrCode string

const (
	ErrBadInput      ErrCode = "BAD_INPUT"
	ErrEmailTaken    ErrCode = "EMAIL_TAKEN"
	ErrUsernameTaken ErrCode = "USERNAME_TAKEN"
	ErrInvalidCreds  ErrCode = "INVALID_CREDENTIALS"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func wrap(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

// Uniqueness is the cache view registration consults before touching
// the store.
type Uniqueness interface {
	UsernameTaken(username string) bool
	EmailTaken(email string) bool
	OnUserCreated(username, email string) error
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
}

type service struct {
	r      Repo
	cache  Uniqueness
	secret string
}

func New(r Repo, cache Uniqueness, secret string) Service {
	return &service{r: r, cache: cache, secret: secret}
}

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || !strings.Contains(email, "@") || username == "" || len(req.Password) < 6 {
		return nil, "", wrap(ErrBadInput, "bad input")
	}

	if s.cache.UsernameTaken(username) {
		return nil, "", wrap(ErrUsernameTaken, "username already taken")
	}
	if s.cache.EmailTaken(email) {
		return nil, "", wrap(ErrEmailTaken, "email already registered")
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		Username:       username,
		Email:          email,
		PasswordHash:   hashed,
		Role:           "user",
		AllowedRentals: model.DefaultAllowedRentals,
	}

	if err := s.r.Create(ctx, u); err != nil {
		if derr := mapDuplicateErr(err); derr != nil {
			return nil, "", derr
		}
		return nil, "", err
	}

	// A lost race against a concurrent registration surfaces as the
	// store's unique constraint above, so this only fails on resync
	// bugs; report it either way.
	if err := s.cache.OnUserCreated(username, email); err != nil {
		return nil, "", err
	}

	token, err := jwtutil.Issue(s.secret, u.ID, u.Role, 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func mapDuplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		cn := strings.ToLower(pgErr.ConstraintName)
		msg := strings.ToLower(pgErr.Message)

		if strings.Contains(cn, "users_email") || strings.Contains(msg, "email") {
			return wrap(ErrEmailTaken, "email already registered")
		}
		if strings.Contains(cn, "users_username") || strings.Contains(msg, "username") {
			return wrap(ErrUsernameTaken, "username already taken")
		}
		return wrap(ErrBadInput, "bad input")
	}
	return nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", wrap(ErrBadInput, "bad input")
	}

	u, err := s.r.ByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, "", wrap(ErrInvalidCreds, "invalid credentials")
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", wrap(ErrInvalidCreds, "invalid credentials")
	}

	token, err := jwtutil.Issue(s.secret, u.ID, u.Role, 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
