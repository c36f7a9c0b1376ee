package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/events"
	"github.com/standingcat/event-api/internal/storage"
)

const (
	maxUploadSize  = 10 << 20
	imageFormField = "image"
)

// localDateTime is the zone-less ISO format browser date pickers submit.
const localDateTime = "2006-01-02T15:04:05"

type eventRequest struct {
	Title               string    `json:"title" validate:"required,max=255"`
	Description         string    `json:"description" validate:"max=1000"`
	DescriptionMarkdown string    `json:"descriptionMarkdown"`
	EventTime           time.Time `json:"eventTime" validate:"required"`
	Capacity            *int      `json:"capacity" validate:"omitempty,min=0"`
}

// decodeEvent reads event fields from a multipart form (with an optional
// image) or from a JSON body.
func (h *Handler) decodeEvent(w http.ResponseWriter, r *http.Request) (events.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req eventRequest
		if err := h.decodeLenientJSON(r, &req); err != nil {
			return events.Input{}, err
		}
		return req.input(nil), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return events.Input{}, apperr.Invalid("malformed multipart form: %v", err)
	}

	req := eventRequest{
		Title:               r.FormValue("title"),
		Description:         r.FormValue("description"),
		DescriptionMarkdown: r.FormValue("descriptionMarkdown"),
	}
	var err error
	if req.EventTime, err = parseEventTime(r.FormValue("eventTime")); err != nil {
		return events.Input{}, err
	}
	if req.Capacity, err = parseCapacity(r.FormValue("capacity")); err != nil {
		return events.Input{}, err
	}
	if err := h.check(&req); err != nil {
		return events.Input{}, err
	}

	img, err := readImage(r)
	if err != nil {
		return events.Input{}, err
	}
	return req.input(img), nil
}

func (req eventRequest) input(img *storage.ImageUpload) events.Input {
	return events.Input{
		Title:               req.Title,
		Description:         req.Description,
		DescriptionMarkdown: req.DescriptionMarkdown,
		EventTime:           req.EventTime,
		Capacity:            req.Capacity,
		Image:               img,
	}
}

// readImage returns the uploaded image, or nil when the form has none.
func readImage(r *http.Request) (*storage.ImageUpload, error) {
	file, header, err := r.FormFile(imageFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Invalid("unreadable image: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Invalid("unreadable image: %v", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Invalid("file %q is not an image", header.Filename)
	}
	return &storage.ImageUpload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

func parseEventTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.Invalid("eventTime is required")
	}
	for _, layout := range []string{time.RFC3339, localDateTime, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Invalid("eventTime %q is not an ISO date-time", raw)
}

func parseCapacity(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Invalid("capacity %q is not a number", raw)
	}
	return &n, nil
}
