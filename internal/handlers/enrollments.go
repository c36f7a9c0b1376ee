package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/respond"
	"github.com/standingcat/event-api/models"
)

type enrollmentResponse struct {
	ID             uint      `json:"id"`
	EnrollmentTime time.Time `json:"enrollmentTime"`
	UserID         uint      `json:"userId"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	EventID        uint      `json:"eventId"`
	EventTitle     string    `json:"eventTitle"`
}

func toEnrollmentResponse(e models.Enrollment) enrollmentResponse {
	out := enrollmentResponse{
		ID:             e.ID,
		EnrollmentTime: e.EnrolledAt,
		UserID:         e.UserID,
		EventID:        e.EventID,
	}
	if e.User != nil {
		out.Username, out.Email = e.User.Username, e.User.Email
	}
	if e.Event != nil {
		out.EventTitle = e.Event.Title
	}
	return out
}

func toEnrollmentResponses(rows []models.Enrollment) []enrollmentResponse {
	out := make([]enrollmentResponse, len(rows))
	for i, row := range rows {
		out[i] = toEnrollmentResponse(row)
	}
	return out
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	e, err := h.Ledger.Enroll(r.Context(), p.UserID, eventID)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toEnrollmentResponse(*e))
}

func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	if err := h.Ledger.Unenroll(r.Context(), p.UserID, eventID); err != nil {
		if errors.Is(err, apperr.ErrEnrollmentNotFound) {
			respond.ErrorWithStatus(w, h.Logger, http.StatusBadRequest, err)
			return
		}
		respond.Error(w, h.Logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) EventEnrollments(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	rows, err := h.Ledger.ListForEvent(r.Context(), eventID)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, toEnrollmentResponses(rows))
}

func (h *Handler) MyEnrollments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	rows, err := h.Ledger.ListForUser(r.Context(), p.UserID)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, toEnrollmentResponses(rows))
}
