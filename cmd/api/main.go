package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/auth"
	"github.com/standingcat/event-api/internal/config"
	"github.com/standingcat/event-api/internal/enrollments"
	"github.com/standingcat/event-api/internal/events"
	"github.com/standingcat/event-api/internal/handlers"
	"github.com/standingcat/event-api/internal/images"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/notify"
	"github.com/standingcat/event-api/internal/storage"
	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	db, err := stores.Open(stores.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer stores.Close(db)

	if err := stores.Migrate(db); err != nil {
		return err
	}

	userStore := &stores.GormUserStore{DB: db, Timeout: cfg.Database.QueryTimeout}
	eventStore := &stores.GormEventStore{DB: db, Timeout: cfg.Database.QueryTimeout}
	enrollmentStore := &stores.GormEnrollmentStore{DB: db, Timeout: cfg.Database.QueryTimeout}

	// Event images go to R2 when credentials are present
	var imageStore events.ImageStore
	if cfg.ImageStorageEnabled() {
		client, err := storage.NewS3Client(ctx, storage.ClientOptions{
			AccountID:       cfg.S3.AccountID,
			AccessKeyID:     cfg.S3.AccessKeyID,
			AccessKeySecret: cfg.S3.AccessKeySecret,
			Endpoint:        cfg.S3.Endpoint,
		})
		if err != nil {
			return err
		}
		imageStore = &storage.S3ImageStore{
			Client:    client,
			Bucket:    cfg.S3.Bucket,
			PublicURL: cfg.S3.PublicURL,
			Transform: images.Normalize,
		}
	} else {
		logger.Warn("Image storage not configured, event images are disabled")
	}

	// Confirmations are published to Redis, or logged without it
	var notifier notify.Notifier = notify.LogNotifier{Logger: logger.Named("notify")}
	if cfg.Redis.URL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		notifier = notify.NewRedisPublisher(client, cfg.Redis.Channel)
	}

	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiration)
	directory := users.NewDirectory(userStore, users.BcryptHasher{}, logger)
	catalog := events.NewCatalog(eventStore, imageStore, logger)
	ledger := enrollments.NewLedger(userStore, eventStore, enrollmentStore, notifier, logger)

	h := handlers.New(directory, tokens, catalog, ledger, handlers.CookieSettings{
		Name:   cfg.JWT.CookieName,
		Secure: cfg.JWT.CookieSecure,
	}, logger)
	router := handlers.NewRouter(h, handlers.RouterOptions{
		Gate:                  auth.NewGate(tokens, userStore, cfg.JWT.CookieName, logger),
		Ping:                  func(ctx context.Context) error { return stores.Ping(ctx, db) },
		AllowedOrigins:        cfg.CORS.AllowedOrigins,
		AuthRequestsPerMinute: cfg.RateLimit.AuthPerMinute,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := ledger.Drain(shutdownCtx); err != nil {
		logger.Warn("Pending confirmations dropped", zap.Error(err))
	}
	logger.Info("Server exited",
		zap.Int64("notification_failures", ledger.NotificationFailures()),
	)
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
