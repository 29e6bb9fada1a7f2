package repository

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/relaypost/relaypost/internal/domain"
)

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) GetByIDOrSlug(ctx context.Context, userID, key string) (*domain.EmailTemplate, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailTemplate), args.Error(1)
}
