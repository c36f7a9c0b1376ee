package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/standingcat/event-api/internal/apperr"
	"github.com/standingcat/event-api/models"
)

// UserStore abstracts user persistence.
type UserStore interface {
	// CreateUser persists a new user, or fails with ErrUsernameTaken / ErrEmailTaken.
	CreateUser(ctx context.Context, u *models.User) error
	// GetByID returns the user or ErrUserNotFound.
	GetByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// GormUserStore implements UserStore using GORM.
type GormUserStore struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func (s *GormUserStore) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	err := s.DB.WithContext(ctx).Create(u).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return s.conflictFor(ctx, u)
	}
	return apperr.Infrastructure("users.create", err)
}

// conflictFor decides which unique column a rejected insert collided with.
func (s *GormUserStore) conflictFor(ctx context.Context, u *models.User) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", u.Username).
		Count(&n).Error; err != nil {
		return apperr.Infrastructure("users.create", err)
	}
	if n > 0 {
		return apperr.ErrUsernameTaken
	}
	return apperr.ErrEmailTaken
}

func (s *GormUserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.first(ctx, "users.get", "id = ?", id)
}

func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.first(ctx, "users.find_by_username", "username = ?", username)
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "users.find_by_email", "email = ?", email)
}

func (s *GormUserStore) first(ctx context.Context, op, query string, arg any) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var u models.User
	if err := s.DB.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Infrastructure(op, err)
	}
	return &u, nil
}
