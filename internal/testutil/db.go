// Package testutil provides a throwaway SQLite database for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/models"
)

// OpenDB returns a migrated in-memory database private to t.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := stores.Open(stores.Options{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, stores.Migrate(db))

	t.Cleanup(func() { _ = stores.Close(db) })
	return db
}

// SeedUser inserts a user with the given roles. The password hash is a
// placeholder; tests that log in should go through users.Directory instead.
func SeedUser(t testing.TB, db *gorm.DB, username string, roles ...string) *models.User {
	t.Helper()

	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		Roles:        roles,
	}
	store := &stores.GormUserStore{DB: db}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// SeedEvent inserts a visible event owned by owner. A nil capacity is unlimited.
func SeedEvent(t testing.TB, db *gorm.DB, owner *models.User, title string, capacity *int) *models.Event {
	t.Helper()

	ev := &models.Event{
		Title:       title,
		Description: title + " description",
		EventTime:   time.Now().Add(24 * time.Hour).UTC(),
		Capacity:    capacity,
		OwnerID:     owner.ID,
	}
	store := &stores.GormEventStore{DB: db}
	require.NoError(t, store.CreateEvent(context.Background(), ev))
	return ev
}

func IntPtr(v int) *int { return &v }
