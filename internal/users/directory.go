// Package users stores identities, hashed credentials and role sets.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/models"
)

const minPasswordLength = 8

// Registration is the input for Register and CreateAdmin.
type Registration struct {
	Username string
	Email    string
	Password string
}

type Directory struct {
	Users  stores.UserStore
	Hasher PasswordHasher
	Logger *zap.Logger
}

func NewDirectory(users stores.UserStore, hasher PasswordHasher, logger *zap.Logger) *Directory {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &Directory{Users: users, Hasher: hasher, Logger: logging.OrNop(logger).Named("users")}
}

// Register creates an account holding only the USER role.
func (d *Directory) Register(ctx context.Context, r Registration) (*models.User, error) {
	return d.create(ctx, r, []string{models.RoleUser})
}

// CreateAdmin creates an account holding both USER and ADMIN.
func (d *Directory) CreateAdmin(ctx context.Context, r Registration) (*models.User, error) {
	return d.create(ctx, r, []string{models.RoleUser, models.RoleAdmin})
}

func (d *Directory) create(ctx context.Context, r Registration, roles []string) (*models.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if err := validate(r); err != nil {
		return nil, err
	}

	if err := d.ensureFree(ctx, d.Users.FindByUsername, r.Username, apperr.ErrUsernameTaken); err != nil {
		return nil, err
	}
	if err := d.ensureFree(ctx, d.Users.FindByEmail, r.Email, apperr.ErrEmailTaken); err != nil {
		return nil, err
	}

	hash, err := d.Hasher.Hash([]byte(r.Password))
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	if err := d.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	d.Logger.Info("user created", zap.Uint("user_id", u.ID), zap.Strings("roles", roles))
	return u, nil
}

func (d *Directory) ensureFree(
	ctx context.Context,
	lookup func(context.Context, string) (*models.User, error),
	value string,
	taken error,
) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, apperr.ErrUserNotFound):
		return nil
	default:
		return err
	}
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords both fail with ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := d.Users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := d.Hasher.Compare([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

func (d *Directory) Get(ctx context.Context, id uint) (*models.User, error) {
	return d.Users.GetByID(ctx, id)
}

func (d *Directory) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.Users.FindByUsername(ctx, username)
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.Users.FindByEmail(ctx, email)
}

func validate(r Registration) error {
	if r.Username == "" {
		return apperr.Invalid("username is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Invalid("email %q is not valid", r.Email)
	}
	if len(r.Password) < minPasswordLength {
		return apperr.Invalid("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
