package auth

import (
	"context"
	"slices"

	"github.com/standingcat/event-api/models"
)

// Principal is the authenticated identity attached to a request. It is a
// value; holders cannot change what another holder sees.
type Principal struct {
	UserID   uint
	Username string
	roles    []string
}

func NewPrincipal(u *models.User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, roles: slices.Clone(u.Roles)}
}

func (p Principal) Roles() []string { return slices.Clone(p.roles) }

func (p Principal) HasRole(role string) bool { return slices.Contains(p.roles, role) }

// HasAnyRole reports whether the principal holds at least one of roles.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
