package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "jwt", cfg.JWT.CookieName)
	assert.True(t, cfg.JWT.CookieSecure)
	assert.Equal(t, "file:events.db?_foreign_keys=on", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 20, cfg.RateLimit.AuthPerMinute)
	assert.False(t, cfg.ImageStorageEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DSN", "host=db user=events dbname=events")
	t.Setenv("JWT_EXPIRATION", "30m")
	t.Setenv("JWT_COOKIE_SECURE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ACCOUNT_ID", "acct")
	t.Setenv("ACCESS_KEY_ID", "key")
	t.Setenv("ACCESS_KEY_SECRET", "secret")
	t.Setenv("BUCKET_NAME", "images")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.False(t, cfg.JWT.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", cfg.S3.Endpoint)
	assert.True(t, cfg.ImageStorageEnabled())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "short secret", env: map[string]string{"JWT_SECRET_KEY": "short", "DB_DRIVER": "sqlite"}},
		{name: "postgres without dsn", env: map[string]string{"JWT_SECRET_KEY": testSecret, "DB_DRIVER": "postgres", "DSN": ""}},
		{name: "unknown driver", env: map[string]string{"JWT_SECRET_KEY": testSecret, "DB_DRIVER": "oracle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
