package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/respond"
	"github.com/standingcat/event-api/internal/users"
	"github.com/standingcat/event-api/models"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Roles: u.Roles}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeJSON(r, &req); err != nil {
		respond.Error(w, h.Logger, err)
		return
	}

	u, err := h.Users.Register(r.Context(), users.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toUserResponse(u))
}

// Login returns the token in the body and also sets it as an HttpOnly cookie
// for browser clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(r, &req); err != nil {
		respond.Error(w, h.Logger, err)
		return
	}

	u, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}

	token, expires, err := h.Tokens.Issue(u.Username)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}

	http.SetCookie(w, h.tokenCookie(token, expires))
	h.Logger.Info("user logged in", zap.Uint("user_id", u.ID))
	respond.JSON(w, http.StatusOK, loginResponse{Message: "successful login", Token: token, ExpiresAt: expires})
}

// Logout expires the token cookie. Tokens are stateless and stay valid until
// their own expiry.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c := h.tokenCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	u, err := h.Users.Get(r.Context(), p.UserID)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) tokenCookie(value string, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.Cookie.Secure {
		// The browser client is served from another origin.
		sameSite = http.SameSiteNoneMode
	}
	c := &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: sameSite,
	}
	if value != "" {
		c.MaxAge = int(h.Tokens.TTL / time.Second)
	}
	return c
}
