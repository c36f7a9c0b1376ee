package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/models"
)

// EnrollmentStore abstracts enrollment persistence.
type EnrollmentStore interface {
	// CreateWithinCapacity inserts e only if the event still has a free slot
	// and the user is not enrolled yet. Both checks and the insert run as one
	// unit against concurrent callers for the same event.
	CreateWithinCapacity(ctx context.Context, e *models.Enrollment) error
	// DeleteEnrollment removes the (user, event) row or fails with
	// ErrEnrollmentNotFound.
	DeleteEnrollment(ctx context.Context, userID, eventID uint) error
	// ListByEvent and ListByUser preload User and Event on every row.
	ListByEvent(ctx context.Context, eventID uint) ([]models.Enrollment, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
}

type GormEnrollmentStore struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func (s *GormEnrollmentStore) CreateWithinCapacity(ctx context.Context, e *models.Enrollment) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock on the event serialises enrollments for it. SQLite ignores
		// the clause and relies on its single writer.
		var ev models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "capacity").
			First(&ev, e.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrEventNotFound
			}
			return err
		}

		if ev.Capacity != nil {
			var taken int64
			if err := tx.Model(&models.Enrollment{}).
				Where("event_id = ?", e.EventID).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken >= int64(*ev.Capacity) {
				return apperr.ErrCapacityExceeded
			}
		}

		var existing int64
		if err := tx.Model(&models.Enrollment{}).
			Where("user_id = ? AND event_id = ?", e.UserID, e.EventID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.ErrAlreadyEnrolled
		}

		return tx.Omit(clause.Associations).Create(e).Error
	})

	switch {
	case err == nil:
		return nil
	case apperr.IsDomain(err):
		return err
	case isUniqueViolation(err):
		return apperr.ErrAlreadyEnrolled
	case isForeignKeyViolation(err):
		return apperr.ErrUserNotFound
	default:
		return apperr.Infrastructure("enrollments.create", err)
	}
}

func (s *GormEnrollmentStore) DeleteEnrollment(ctx context.Context, userID, eventID uint) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Delete(&models.Enrollment{})
	if res.Error != nil {
		return apperr.Infrastructure("enrollments.delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrEnrollmentNotFound
	}
	return nil
}

func (s *GormEnrollmentStore) ListByEvent(ctx context.Context, eventID uint) ([]models.Enrollment, error) {
	return s.list(ctx, "enrollments.list_by_event", "event_id = ?", eventID)
}

func (s *GormEnrollmentStore) ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	return s.list(ctx, "enrollments.list_by_user", "user_id = ?", userID)
}

func (s *GormEnrollmentStore) list(ctx context.Context, op, query string, arg uint) ([]models.Enrollment, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []models.Enrollment
	if err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("Event").
		Where(query, arg).
		Order("enrolled_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return rows, nil
}
