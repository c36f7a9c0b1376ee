package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/models"
)

const DefaultCookieName = "jwt"

// IdentityLookup resolves a token subject to a stored user.
type IdentityLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Gate attaches a Principal to requests carrying a valid token. It never
// rejects a request; authorization happens downstream.
type Gate struct {
	Tokens     TokenVerifier
	Users      IdentityLookup
	CookieName string
	Logger     *zap.Logger
}

func NewGate(tokens TokenVerifier, users IdentityLookup, cookieName string, logger *zap.Logger) *Gate {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Gate{
		Tokens:     tokens,
		Users:      users,
		CookieName: cookieName,
		Logger:     logging.OrNop(logger).Named("auth"),
	}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		if p, ok := g.Resolve(r); ok {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// Resolve turns the request credential into a Principal.
func (g *Gate) Resolve(r *http.Request) (Principal, bool) {
	token := g.credential(r)
	if token == "" {
		return Principal{}, false
	}

	username, err := g.Tokens.SubjectOf(token)
	if err != nil {
		g.Logger.Debug("unreadable token", zap.Error(err))
		return Principal{}, false
	}

	u, err := g.Users.FindByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, apperr.ErrUserNotFound) {
			g.Logger.Warn("identity lookup failed", zap.String("username", username), zap.Error(err))
		}
		return Principal{}, false
	}

	if !g.Tokens.Verify(token, u.Username) {
		g.Logger.Debug("token rejected", zap.String("username", username))
		return Principal{}, false
	}
	return NewPrincipal(u), true
}

// credential returns the bearer header token, falling back to the cookie.
func (g *Gate) credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(g.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
