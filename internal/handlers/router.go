package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"github.com/standingcat/event-api/internal/auth"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/respond"
)

const healthTimeout = 2 * time.Second

type RouterOptions struct {
	Gate *auth.Gate
	// Ping checks the database for /healthz. Nil reports healthy.
	Ping func(ctx context.Context) error
	// AllowedOrigins enables CORS with credentials when non-empty.
	AllowedOrigins []string
	// AuthRequestsPerMinute limits /api/auth per client IP. Zero disables it.
	AuthRequestsPerMinute int
}

// NewRouter composes the request pipeline: gate, then policy, then handler.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(h.Logger))
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authenticated := auth.Policy{}
	users := auth.UserOnly.Middleware(h.Logger)
	admins := auth.AdminOnly.Middleware(h.Logger)

	r.Route("/api", func(r chi.Router) {
		if opts.Gate != nil {
			r.Use(opts.Gate.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			if opts.AuthRequestsPerMinute > 0 {
				r.Use(httprate.Limit(
					opts.AuthRequestsPerMinute,
					1*time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				))
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(authenticated.Middleware(h.Logger)).Get("/me", h.Me)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
			r.Group(func(r chi.Router) {
				r.Use(admins)
				r.Post("/", h.CreateEvent)
				r.Put("/{id}", h.UpdateEvent)
				r.Patch("/{id}/hide", h.HideEvent)
				r.Patch("/{id}/unhide", h.UnhideEvent)
				r.Delete("/{id}", h.DeleteEvent)
			})
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.With(admins).Get("/event/{eventId}", h.EventEnrollments)
			r.Group(func(r chi.Router) {
				r.Use(users)
				r.Get("/my-enrollments", h.MyEnrollments)
				r.Post("/{eventId}", h.Enroll)
				r.Delete("/{eventId}", h.Unenroll)
			})
		})
	})

	return r
}
