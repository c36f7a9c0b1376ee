// Command createadmin bootstraps an account holding the ADMIN role.
//
//	createadmin <username> <email> [password]
//
// The password falls back to ADMIN_PASSWORD when omitted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/config"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/internal/users"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: createadmin <username> <email> [password]")
		os.Exit(2)
	}
	username, email := os.Args[1], os.Args[2]

	_ = godotenv.Load()
	password := os.Getenv("ADMIN_PASSWORD")
	if len(os.Args) > 3 {
		password = os.Args[3]
	}
	if password == "" {
		log.Fatal("Password required: pass it as the third argument or set ADMIN_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := stores.Open(stores.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer stores.Close(db)

	if err := stores.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	directory := users.NewDirectory(
		&stores.GormUserStore{DB: db, Timeout: cfg.Database.QueryTimeout},
		users.BcryptHasher{},
		logger,
	)

	u, err := directory.CreateAdmin(context.Background(), users.Registration{
		Username: username,
		Email:    email,
		Password: password,
	})
	switch {
	case errors.Is(err, apperr.ErrUsernameTaken):
		fmt.Printf("User %q already exists, nothing to do\n", username)
	case err != nil:
		logger.Fatal("Failed to create admin", zap.Error(err))
	default:
		fmt.Printf("Admin %q created with id %d\n", u.Username, u.ID)
	}
}
