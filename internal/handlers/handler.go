// Package handlers exposes the API over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/auth"
	"github.com/standingcat/event-api/internal/enrollments"
	"github.com/standingcat/event-api/internal/events"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/users"
)

const maxJSONBody = 1 << 20

type CookieSettings struct {
	Name   string
	Secure bool
}

type Handler struct {
	Users   *users.Directory
	Tokens  *auth.JWTService
	Catalog *events.Catalog
	Ledger  *enrollments.Ledger
	Cookie  CookieSettings
	Logger  *zap.Logger

	validate *validator.Validate
}

func New(
	dir *users.Directory,
	tokens *auth.JWTService,
	catalog *events.Catalog,
	ledger *enrollments.Ledger,
	cookie CookieSettings,
	logger *zap.Logger,
) *Handler {
	if cookie.Name == "" {
		cookie.Name = auth.DefaultCookieName
	}
	return &Handler{
		Users:    dir,
		Tokens:   tokens,
		Catalog:  catalog,
		Ledger:   ledger,
		Cookie:   cookie,
		Logger:   logging.OrNop(logger).Named("handlers"),
		validate: validator.New(),
	}
}

func (h *Handler) decodeJSON(r *http.Request, dst any) error {
	return h.decode(r, dst, true)
}

// decodeLenientJSON ignores fields dst does not declare, such as id or hidden
// echoed back from a fetched event.
func (h *Handler) decodeLenientJSON(r *http.Request, dst any) error {
	return h.decode(r, dst, false)
}

func (h *Handler) decode(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is empty")
		}
		return apperr.Invalid("malformed request body: %v", err)
	}
	return h.check(dst)
}

func (h *Handler) check(dst any) error {
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return apperr.Invalid("validation failed: %s", strings.Join(fields, ", "))
		}
		return apperr.Invalid("%v", err)
	}
	return nil
}

// principal returns the caller attached by the gate. Routes behind a policy
// always have one.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return auth.Principal{}, apperr.ErrUnauthenticated
	}
	return p, nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("%s %q is not a valid id", name, raw)
	}
	return uint(id), nil
}
