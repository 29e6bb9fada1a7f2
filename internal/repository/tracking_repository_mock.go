package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/relaypost/relaypost/internal/domain"
)

type MockTrackingRepository struct {
	mock.Mock
}

func (m *MockTrackingRepository) CreateOpens(ctx context.Context, opens []*domain.TrackingOpen) error {
	args := m.Called(ctx, opens)
	return args.Error(0)
}

func (m *MockTrackingRepository) CreateLinks(ctx context.Context, links []*domain.TrackingLink) error {
	args := m.Called(ctx, links)
	return args.Error(0)
}

func (m *MockTrackingRepository) TouchOpen(ctx context.Context, id string, at time.Time) (*domain.OpenTouch, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OpenTouch), args.Error(1)
}

func (m *MockTrackingRepository) TouchClick(ctx context.Context, id string, at time.Time) (*domain.ClickTouch, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClickTouch), args.Error(1)
}
