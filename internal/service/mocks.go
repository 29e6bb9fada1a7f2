package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/relaypost/relaypost/internal/domain"
)

// Hand-written testify mocks for the service interfaces, used by handler
// and worker tests.

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, authHeader string) (*domain.AuthContext, error) {
	args := m.Called(ctx, authHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthContext), args.Error(1)
}

type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) Render(ctx context.Context, userID, key string, variables map[string]string) (*domain.RenderedTemplate, error) {
	args := m.Called(ctx, userID, key, variables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RenderedTemplate), args.Error(1)
}

type MockSuppressionService struct {
	mock.Mock
}

func (m *MockSuppressionService) CheckSuppressed(ctx context.Context, userID string, emails []string, domainID string) ([]string, error) {
	args := m.Called(ctx, userID, emails, domainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSuppressionService) Add(ctx context.Context, userID, email, reason string, sourceEventID, domainID *string, metadata domain.MapOfAny) (*domain.Suppression, error) {
	args := m.Called(ctx, userID, email, reason, sourceEventID, domainID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Suppression), args.Error(1)
}

func (m *MockSuppressionService) HandleSoftBounce(ctx context.Context, userID, email string, sourceEventID, domainID *string, metadata domain.MapOfAny) (*domain.Suppression, error) {
	args := m.Called(ctx, userID, email, sourceEventID, domainID, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Suppression), args.Error(1)
}

func (m *MockSuppressionService) Remove(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockSuppressionService) List(ctx context.Context, userID string, params domain.SuppressionListParams) ([]*domain.Suppression, domain.Pagination, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(domain.Pagination), args.Error(2)
	}
	return args.Get(0).([]*domain.Suppression), args.Get(1).(domain.Pagination), args.Error(2)
}

func (m *MockSuppressionService) GetStats(ctx context.Context, userID string) (*domain.SuppressionStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SuppressionStats), args.Error(1)
}

type MockSendService struct {
	mock.Mock
}

func (m *MockSendService) Send(ctx context.Context, auth *domain.AuthContext, req *domain.SendMessageRequest) (*domain.SendResult, error) {
	args := m.Called(ctx, auth, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SendResult), args.Error(1)
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) List(ctx context.Context, userID string, params domain.EventListParams) ([]*domain.EmailEvent, domain.Pagination, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(domain.Pagination), args.Error(2)
	}
	return args.Get(0).([]*domain.EmailEvent), args.Get(1).(domain.Pagination), args.Error(2)
}

func (m *MockEventService) GetByMessageID(ctx context.Context, userID, messageID string) ([]*domain.RecipientEvents, error) {
	args := m.Called(ctx, userID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RecipientEvents), args.Error(1)
}

func (m *MockEventService) GetStats(ctx context.Context, userID string, startDate, endDate *time.Time) (*domain.EventStats, error) {
	args := m.Called(ctx, userID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventStats), args.Error(1)
}

func (m *MockEventService) Ingest(ctx context.Context, auth *domain.AuthContext, req *domain.IngestEventRequest) (*domain.EmailEvent, error) {
	args := m.Called(ctx, auth, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmailEvent), args.Error(1)
}

type MockTrackingService struct {
	mock.Mock
}

func (m *MockTrackingService) RecordOpen(ctx context.Context, id, ipAddress, userAgent string) {
	m.Called(ctx, id, ipAddress, userAgent)
}

func (m *MockTrackingService) RecordClick(ctx context.Context, id, ipAddress, userAgent string) (string, error) {
	args := m.Called(ctx, id, ipAddress, userAgent)
	return args.String(0), args.Error(1)
}

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.SendJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobQueue) Close() error {
	args := m.Called()
	return args.Error(0)
}
