package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/models"
)

// EventStore abstracts event persistence. Every method that addresses a
// single event fails with ErrEventNotFound when it does not exist.
type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	// UpdateEvent saves the editable columns. The hidden flag is left alone.
	UpdateEvent(ctx context.Context, e *models.Event) error
	SetHidden(ctx context.Context, id uint, hidden bool) (*models.Event, error)
	// DeleteEvent removes the event together with all of its enrollments and
	// returns the deleted row.
	DeleteEvent(ctx context.Context, id uint) (*models.Event, error)
	ListVisible(ctx context.Context) ([]models.Event, error)
	// CountEnrollments returns the enrollment count per event id. Events
	// without enrollments are absent from the map.
	CountEnrollments(ctx context.Context, eventIDs ...uint) (map[uint]int64, error)
}

// editableColumns are the columns UpdateEvent may write.
var editableColumns = []string{
	"title", "description", "description_markdown", "image_url", "image_key",
	"event_time", "capacity", "updated_at",
}

type GormEventStore struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func (s *GormEventStore) CreateEvent(ctx context.Context, e *models.Event) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.DB.WithContext(ctx).Create(e).Error; err != nil {
		if isForeignKeyViolation(err) {
			return apperr.ErrUserNotFound
		}
		return apperr.Infrastructure("events.create", err)
	}
	return nil
}

func (s *GormEventStore) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	return findEvent(s.DB.WithContext(ctx), "events.get", id)
}

func (s *GormEventStore) UpdateEvent(ctx context.Context, e *models.Event) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	res := s.DB.WithContext(ctx).
		Model(&models.Event{ID: e.ID}).
		Select(editableColumns).
		Updates(e)
	if res.Error != nil {
		return apperr.Infrastructure("events.update", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrEventNotFound
	}
	return nil
}

func (s *GormEventStore) SetHidden(ctx context.Context, id uint, hidden bool) (*models.Event, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var out *models.Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Event{}).Where("id = ?", id).Update("hidden", hidden)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrEventNotFound
		}
		ev, err := findEvent(tx, "events.set_hidden", id)
		if err != nil {
			return err
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, apperr.Infrastructure("events.set_hidden", err)
	}
	return out, nil
}

func (s *GormEventStore) DeleteEvent(ctx context.Context, id uint) (*models.Event, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var ev models.Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ev, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrEventNotFound
			}
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ev).Error
	})
	if err != nil {
		return nil, apperr.Infrastructure("events.delete", err)
	}
	return &ev, nil
}

func (s *GormEventStore) ListVisible(ctx context.Context) ([]models.Event, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var events []models.Event
	if err := s.DB.WithContext(ctx).
		Where("hidden = ?", false).
		Order("event_time ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, apperr.Infrastructure("events.list_visible", err)
	}
	return events, nil
}

func (s *GormEventStore) CountEnrollments(ctx context.Context, eventIDs ...uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []struct {
		EventID uint
		Total   int64
	}
	if err := s.DB.WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Infrastructure("events.count_enrollments", err)
	}
	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}

func findEvent(db *gorm.DB, op string, id uint) (*models.Event, error) {
	var ev models.Event
	if err := db.First(&ev, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrEventNotFound
		}
		return nil, apperr.Infrastructure(op, err)
	}
	return &ev, nil
}
