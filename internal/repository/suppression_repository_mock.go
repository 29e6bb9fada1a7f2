package repository

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/relaypost/relaypost/internal/domain"
)

type MockSuppressionRepository struct {
	mock.Mock
}

func (m *MockSuppressionRepository) CheckBlocked(ctx context.Context, userID string, emails []string, domainID string) ([]string, error) {
	args := m.Called(ctx, userID, emails, domainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSuppressionRepository) GetByEmail(ctx context.Context, userID, email string) (*domain.Suppression, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Suppression), args.Error(1)
}

func (m *MockSuppressionRepository) Create(ctx context.Context, s *domain.Suppression) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSuppressionRepository) Update(ctx context.Context, s *domain.Suppression) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSuppressionRepository) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockSuppressionRepository) List(ctx context.Context, userID string, params domain.SuppressionListParams) ([]*domain.Suppression, int, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Suppression), args.Int(1), args.Error(2)
}

func (m *MockSuppressionRepository) Stats(ctx context.Context, userID string) (*domain.SuppressionStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SuppressionStats), args.Error(1)
}
