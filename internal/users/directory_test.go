package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/mocks"
	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/internal/testutil"
	"github.com/standingcat/event-api/internal/users"
	"github.com/standingcat/event-api/models"
)

func newDirectory(t *testing.T) *users.Directory {
	db := testutil.OpenDB(t)
	return users.NewDirectory(&stores.GormUserStore{DB: db}, users.BcryptHasher{Cost: 4}, nil)
}

func TestRegisterGrantsUserRoleOnly(t *testing.T) {
	dir := newDirectory(t)

	u, err := dir.Register(context.Background(), users.Registration{
		Username: "alice", Email: "alice@x.com", Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, []string{models.RoleUser}, u.Roles)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
}

func TestCreateAdminGrantsBothRoles(t *testing.T) {
	dir := newDirectory(t)

	u, err := dir.CreateAdmin(context.Background(), users.Registration{
		Username: "root", Email: "root@x.com", Password: "correct horse",
	})
	require.NoError(t, err)
	assert.True(t, u.HasRole(models.RoleUser))
	assert.True(t, u.HasRole(models.RoleAdmin))
}

func TestRegisterRejectsTakenIdentity(t *testing.T) {
	dir := newDirectory(t)
	ctx := context.Background()
	_, err := dir.Register(ctx, users.Registration{Username: "alice", Email: "alice@x.com", Password: "password1"})
	require.NoError(t, err)

	_, err = dir.Register(ctx, users.Registration{Username: "alice", Email: "new@x.com", Password: "password1"})
	assert.ErrorIs(t, err, apperr.ErrUsernameTaken)

	_, err = dir.Register(ctx, users.Registration{Username: "bob", Email: "alice@x.com", Password: "password1"})
	assert.ErrorIs(t, err, apperr.ErrEmailTaken)
}

func TestRegisterValidatesInput(t *testing.T) {
	dir := newDirectory(t)
	ctx := context.Background()

	cases := map[string]users.Registration{
		"blank username": {Username: "  ", Email: "a@x.com", Password: "password1"},
		"bad email":      {Username: "a", Email: "not-an-email", Password: "password1"},
		"short password": {Username: "a", Email: "a@x.com", Password: "short"},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := dir.Register(ctx, r)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	dir := newDirectory(t)
	ctx := context.Background()
	_, err := dir.Register(ctx, users.Registration{Username: "alice", Email: "alice@x.com", Password: "password1"})
	require.NoError(t, err)

	u, err := dir.Authenticate(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = dir.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = dir.Authenticate(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestRegisterHashFailure(t *testing.T) {
	store := new(mocks.UserStore)
	hasher := new(mocks.PasswordHasher)
	store.On("FindByUsername", mock.Anything, "alice").Return(nil, apperr.ErrUserNotFound)
	store.On("FindByEmail", mock.Anything, "alice@x.com").Return(nil, apperr.ErrUserNotFound)
	hasher.On("Hash", []byte("password1")).Return(nil, errors.New("boom"))

	dir := users.NewDirectory(store, hasher, nil)
	_, err := dir.Register(context.Background(), users.Registration{Username: "alice", Email: "alice@x.com", Password: "password1"})

	require.Error(t, err)
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	hasher.AssertExpectations(t)
}

func TestAuthenticatePropagatesStoreFailure(t *testing.T) {
	store := new(mocks.UserStore)
	outage := apperr.Infrastructure("users.find_by_username", errors.New("connection refused"))
	store.On("FindByUsername", mock.Anything, "alice").Return(nil, outage)

	dir := users.NewDirectory(store, new(mocks.PasswordHasher), nil)
	_, err := dir.Authenticate(context.Background(), "alice", "password1")

	assert.ErrorIs(t, err, apperr.ErrInfrastructure)
	assert.True(t, apperr.Retryable(err))
}
