package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/respond"
	"github.com/standingcat/event-api/models"
)

// Policy is a role requirement checked after the Gate has run. A principal
// passes when it holds any of Roles.
type Policy struct {
	Roles []string
}

var (
	UserOnly  = Policy{Roles: []string{models.RoleUser}}
	AdminOnly = Policy{Roles: []string{models.RoleAdmin}}
)

func RequireRoles(roles ...string) Policy {
	return Policy{Roles: roles}
}

// Check authorizes the principal found in ctx.
func (p Policy) Check(ctx context.Context) (Principal, error) {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		return Principal{}, apperr.ErrUnauthenticated
	}
	if len(p.Roles) > 0 && !principal.HasAnyRole(p.Roles...) {
		return principal, apperr.ErrForbidden
	}
	return principal, nil
}

// CheckOwner is Check followed by an ownership comparison. A role match does
// not override an ownership mismatch.
func (p Policy) CheckOwner(ctx context.Context, ownerID uint) (Principal, error) {
	principal, err := p.Check(ctx)
	if err != nil {
		return principal, err
	}
	if principal.UserID != ownerID {
		return principal, apperr.ErrForbidden
	}
	return principal, nil
}

// Middleware rejects requests that fail Check with 401 or 403.
func (p Policy) Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := p.Check(r.Context()); err != nil {
				respond.Error(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
