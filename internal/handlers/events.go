package handlers

import (
	"net/http"

	"github.com/standingcat/event-api/internal/respond"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.ListVisible(r.Context())
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	ev, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeEvent(w, r)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	ev, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ev)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	in, err := h.decodeEvent(w, r)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	ev, err := h.Catalog.Update(r.Context(), id, in)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

func (h *Handler) HideEvent(w http.ResponseWriter, r *http.Request) {
	h.setHidden(w, r, true)
}

func (h *Handler) UnhideEvent(w http.ResponseWriter, r *http.Request) {
	h.setHidden(w, r, false)
}

func (h *Handler) setHidden(w http.ResponseWriter, r *http.Request, hidden bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	toggle := h.Catalog.Unhide
	if hidden {
		toggle = h.Catalog.Hide
	}
	ev, err := toggle(r.Context(), id)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.NoContent(w)
}
