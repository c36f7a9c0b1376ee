// Package events owns event records, their visibility, capacity and owner.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/internal/auth"
	"github.com/standingcat/event-api/internal/logging"
	"github.com/standingcat/event-api/internal/storage"
	"github.com/standingcat/event-api/internal/stores"
	"github.com/standingcat/event-api/models"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 1000
	imageCleanupTimeout  = 10 * time.Second
)

var ErrImageStorageDisabled = errors.New("image storage is not configured")

type ImageStore interface {
	Put(ctx context.Context, ownerID uint, img storage.ImageUpload) (*storage.StoredImage, error)
	Delete(ctx context.Context, key string) error
}

// Input carries the editable fields of an event. Update replaces all of
// them; a nil Image keeps the current one.
type Input struct {
	Title               string
	Description         string
	DescriptionMarkdown string
	EventTime           time.Time
	Capacity            *int
	Image               *storage.ImageUpload
}

// Summary is an event annotated with its derived enrollment count.
type Summary struct {
	models.Event
	CurrentEnrollments int64 `json:"currentEnrollments"`
}

type Catalog struct {
	Events stores.EventStore
	// Images is optional. Without it, inputs carrying an image are rejected.
	Images ImageStore
	Logger *zap.Logger
}

func NewCatalog(events stores.EventStore, images ImageStore, logger *zap.Logger) *Catalog {
	return &Catalog{Events: events, Images: images, Logger: logging.OrNop(logger).Named("events")}
}

// Create stores a visible event owned by the calling ADMIN.
func (c *Catalog) Create(ctx context.Context, in Input) (*models.Event, error) {
	principal, err := auth.AdminOnly.Check(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	ev := &models.Event{OwnerID: principal.UserID}
	apply(ev, in)

	uploaded, err := c.upload(ctx, principal.UserID, in.Image)
	if err != nil {
		return nil, err
	}
	if uploaded != nil {
		ev.ImageURL, ev.ImageKey = uploaded.URL, uploaded.Key
	}

	if err := c.Events.CreateEvent(ctx, ev); err != nil {
		c.discard(ctx, uploaded)
		return nil, err
	}
	c.Logger.Info("event created", zap.Uint("event_id", ev.ID), zap.Uint("owner_id", ev.OwnerID))
	return ev, nil
}

// Update replaces the editable fields of an event. The caller must be an
// ADMIN and the event's owner. The hidden flag is never touched here.
func (c *Catalog) Update(ctx context.Context, id uint, in Input) (*models.Event, error) {
	if _, err := auth.AdminOnly.Check(ctx); err != nil {
		return nil, err
	}
	ev, err := c.Events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	principal, err := auth.AdminOnly.CheckOwner(ctx, ev.OwnerID)
	if err != nil {
		return nil, err
	}
	return c.replace(ctx, principal, ev, in)
}

// UpdateAsAdmin is Update without the ownership check.
//
// Deprecated: any ADMIN can rewrite any event through this path. Use Update.
func (c *Catalog) UpdateAsAdmin(ctx context.Context, id uint, in Input) (*models.Event, error) {
	principal, err := auth.AdminOnly.Check(ctx)
	if err != nil {
		return nil, err
	}
	ev, err := c.Events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.replace(ctx, principal, ev, in)
}

func (c *Catalog) replace(ctx context.Context, principal auth.Principal, ev *models.Event, in Input) (*models.Event, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	previousKey := ev.ImageKey
	apply(ev, in)

	uploaded, err := c.upload(ctx, principal.UserID, in.Image)
	if err != nil {
		return nil, err
	}
	if uploaded != nil {
		ev.ImageURL, ev.ImageKey = uploaded.URL, uploaded.Key
	}

	if err := c.Events.UpdateEvent(ctx, ev); err != nil {
		c.discard(ctx, uploaded)
		return nil, err
	}
	if uploaded != nil && previousKey != "" {
		c.removeImage(ctx, previousKey)
	}
	return ev, nil
}

func (c *Catalog) Hide(ctx context.Context, id uint) (*models.Event, error) {
	return c.setHidden(ctx, id, true)
}

func (c *Catalog) Unhide(ctx context.Context, id uint) (*models.Event, error) {
	return c.setHidden(ctx, id, false)
}

func (c *Catalog) setHidden(ctx context.Context, id uint, hidden bool) (*models.Event, error) {
	if _, err := auth.AdminOnly.Check(ctx); err != nil {
		return nil, err
	}
	return c.Events.SetHidden(ctx, id, hidden)
}

// Delete removes the event and all of its enrollments in one transaction.
// The stored image is removed afterwards on a best effort basis.
func (c *Catalog) Delete(ctx context.Context, id uint) error {
	if _, err := auth.AdminOnly.Check(ctx); err != nil {
		return err
	}
	ev, err := c.Events.DeleteEvent(ctx, id)
	if err != nil {
		return err
	}
	c.removeImage(ctx, ev.ImageKey)
	c.Logger.Info("event deleted", zap.Uint("event_id", id))
	return nil
}

// ListVisible returns every event that is not hidden.
func (c *Catalog) ListVisible(ctx context.Context) ([]Summary, error) {
	list, err := c.Events.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	counts, err := c.Events.CountEnrollments(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, len(list))
	for i := range list {
		out[i] = Summary{Event: list[i], CurrentEnrollments: counts[list[i].ID]}
	}
	return out, nil
}

// Get returns an event whether or not it is hidden.
func (c *Catalog) Get(ctx context.Context, id uint) (*Summary, error) {
	ev, err := c.Events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := c.Events.CountEnrollments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Summary{Event: *ev, CurrentEnrollments: counts[id]}, nil
}

func (c *Catalog) upload(ctx context.Context, ownerID uint, img *storage.ImageUpload) (*storage.StoredImage, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, nil
	}
	if c.Images == nil {
		return nil, apperr.Invalid("%v", ErrImageStorageDisabled)
	}
	stored, err := c.Images.Put(ctx, ownerID, *img)
	if err != nil {
		return nil, apperr.Infrastructure("events.upload_image", err)
	}
	return stored, nil
}

// discard drops an image uploaded for a write that then failed.
func (c *Catalog) discard(ctx context.Context, img *storage.StoredImage) {
	if img != nil {
		c.removeImage(ctx, img.Key)
	}
}

func (c *Catalog) removeImage(ctx context.Context, key string) {
	if key == "" || c.Images == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), imageCleanupTimeout)
	defer cancel()
	if err := c.Images.Delete(ctx, key); err != nil {
		c.Logger.Warn("failed to remove event image", zap.String("key", key), zap.Error(err))
	}
}

func apply(ev *models.Event, in Input) {
	ev.Title = strings.TrimSpace(in.Title)
	ev.Description = strings.TrimSpace(in.Description)
	ev.DescriptionMarkdown = in.DescriptionMarkdown
	ev.EventTime = in.EventTime.UTC()
	ev.Capacity = in.Capacity
}

func validate(in Input) error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return apperr.Invalid("title is required")
	case len(title) > maxTitleLength:
		return apperr.Invalid("title must be at most %d characters", maxTitleLength)
	case len(strings.TrimSpace(in.Description)) > maxDescriptionLength:
		return apperr.Invalid("description must be at most %d characters", maxDescriptionLength)
	case in.EventTime.IsZero():
		return apperr.Invalid("eventTime is required")
	case in.Capacity != nil && *in.Capacity < 0:
		return apperr.Invalid("capacity must not be negative")
	}
	return nil
}
