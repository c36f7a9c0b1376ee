package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/models"
)

func TestPolicyCheck(t *testing.T) {
	user := WithPrincipal(context.Background(), NewPrincipal(&models.User{ID: 1, Roles: []string{models.RoleUser}}))
	admin := WithPrincipal(context.Background(), NewPrincipal(&models.User{ID: 2, Roles: []string{models.RoleUser, models.RoleAdmin}}))

	_, err := AdminOnly.Check(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = AdminOnly.Check(user)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	p, err := AdminOnly.Check(admin)
	assert.NoError(t, err)
	assert.Equal(t, uint(2), p.UserID)

	_, err = RequireRoles(models.RoleUser, models.RoleAdmin).Check(user)
	assert.NoError(t, err)
}

func TestPolicyCheckOwner(t *testing.T) {
	admin := WithPrincipal(context.Background(), NewPrincipal(&models.User{ID: 2, Roles: []string{models.RoleAdmin}}))

	_, err := AdminOnly.CheckOwner(admin, 2)
	assert.NoError(t, err)

	_, err = AdminOnly.CheckOwner(admin, 99)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestPolicyMiddleware(t *testing.T) {
	h := UserOnly.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithPrincipal(r.Context(), NewPrincipal(&models.User{ID: 1, Roles: []string{models.RoleAdmin}})))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithPrincipal(r.Context(), NewPrincipal(&models.User{ID: 1, Roles: []string{models.RoleUser}})))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestPrincipalRolesAreCopied(t *testing.T) {
	u := &models.User{ID: 1, Roles: []string{models.RoleUser}}
	p := NewPrincipal(u)
	u.Roles[0] = models.RoleAdmin

	roles := p.Roles()
	roles[0] = models.RoleAdmin

	assert.False(t, p.HasRole(models.RoleAdmin))
}
