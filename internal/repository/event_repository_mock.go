package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/relaypost/relaypost/internal/domain"
)

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.EmailEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) CreateBatch(ctx context.Context, events []*domain.EmailEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockEventRepository) List(ctx context.Context, userID string, params domain.EventListParams) ([]*domain.EmailEvent, int, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.EmailEvent), args.Int(1), args.Error(2)
}

func (m *MockEventRepository) ListByMessageID(ctx context.Context, userID, messageID string) ([]*domain.EmailEvent, error) {
	args := m.Called(ctx, userID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmailEvent), args.Error(1)
}

func (m *MockEventRepository) UpdateQueuedByMessageID(ctx context.Context, messageID, eventType string, metadata domain.MapOfAny) (int, error) {
	args := m.Called(ctx, messageID, eventType, metadata)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) Stats(ctx context.Context, userID string, startDate, endDate *time.Time) (map[string]int, error) {
	args := m.Called(ctx, userID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}
