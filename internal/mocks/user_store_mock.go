package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/standingcat/event-api/models"
)

type UserStore struct{ mock.Mock }

func (m *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return userResult(m.Called(ctx, email))
}

func userResult(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
