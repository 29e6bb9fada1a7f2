package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/relaypost/relaypost/internal/domain"
)

type MockAuthRepository struct {
	mock.Mock
}

func (m *MockAuthRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.AuthContext, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthContext), args.Error(1)
}

func (m *MockAuthRepository) TouchLastUsed(ctx context.Context, keyID string, usedAt time.Time) error {
	args := m.Called(ctx, keyID, usedAt)
	return args.Error(0)
}

type MockBillingRepository struct {
	mock.Mock
}

func (m *MockBillingRepository) IncrementUsage(ctx context.Context, userID string, n int) error {
	args := m.Called(ctx, userID, n)
	return args.Error(0)
}

func (m *MockBillingRepository) DecrementUsage(ctx context.Context, userID string, n int) error {
	args := m.Called(ctx, userID, n)
	return args.Error(0)
}
