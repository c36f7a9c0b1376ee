package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Host            string
		Port            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}
	Database struct {
		Driver       string
		DSN          string
		QueryTimeout time.Duration
		MaxOpenConns int
	}
	JWT struct {
		Secret       string
		Expiration   time.Duration
		CookieName   string
		CookieSecure bool
	}
	Redis struct {
		URL     string
		Channel string
	}
	S3 struct {
		AccountID       string
		AccessKeyID     string
		AccessKeySecret string
		Bucket          string
		Endpoint        string
		PublicURL       string
	}
	CORS struct {
		AllowedOrigins []string
	}
	RateLimit struct {
		AuthPerMinute int
	}
	LogLevel string
}

// Load reads the process environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("Error loading .env file", err)
	}

	cfg := &Config{}

	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", "10s")
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s")
	cfg.Server.IdleTimeout = getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s")
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "15s")

	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	cfg.Database.DSN = os.Getenv("DSN")
	cfg.Database.QueryTimeout = getEnvAsDuration("DB_QUERY_TIMEOUT", "5s")
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 20)
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:events.db?_foreign_keys=on"
	}

	cfg.JWT.Secret = os.Getenv("JWT_SECRET_KEY")
	cfg.JWT.Expiration = getEnvAsDuration("JWT_EXPIRATION", "1h")
	cfg.JWT.CookieName = getEnv("JWT_COOKIE_NAME", "jwt")
	cfg.JWT.CookieSecure = getEnvAsBool("JWT_COOKIE_SECURE", true)

	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Redis.Channel = getEnv("REDIS_ENROLLMENT_CHANNEL", "enrollment_confirmations")

	cfg.S3.AccountID = os.Getenv("ACCOUNT_ID")
	cfg.S3.AccessKeyID = os.Getenv("ACCESS_KEY_ID")
	cfg.S3.AccessKeySecret = os.Getenv("ACCESS_KEY_SECRET")
	cfg.S3.Bucket = os.Getenv("BUCKET_NAME")
	cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	if cfg.S3.Endpoint == "" && cfg.S3.AccountID != "" {
		cfg.S3.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.S3.AccountID)
	}
	cfg.S3.PublicURL = os.Getenv("PUBLIC_URL")

	cfg.CORS.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	cfg.RateLimit.AuthPerMinute = getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET_KEY must be set to at least 32 bytes")
	}
	if c.JWT.Expiration <= 0 {
		return errors.New("JWT_EXPIRATION must be a positive duration")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("DSN is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be a positive duration")
	}
	return nil
}

// ImageStorageEnabled reports whether enough S3 settings are present to
// accept event image uploads.
func (c *Config) ImageStorageEnabled() bool {
	return c.S3.Bucket != "" && c.S3.Endpoint != "" && c.S3.AccessKeyID != "" && c.S3.AccessKeySecret != ""
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	val := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(val)
	if err != nil {
		return time.Duration(0)
	}
	return duration
}

func getEnvAsInt(key string, defaultValue int) int {
	val := getEnv(key, strconv.Itoa(defaultValue))
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvAsBool(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, value := range strings.Split(getEnv(key, defaultValue), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
