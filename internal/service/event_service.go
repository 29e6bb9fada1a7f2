package service

import (
	"context"
	"fmt"
	"time"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/crypto"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// EventService drives the event API and external event ingestion
type EventService struct {
	repo        domain.EventRepository
	suppression domain.SuppressionService
	logger      logger.Logger
}

// NewEventService creates a new event service
func NewEventService(repo domain.EventRepository, suppression domain.SuppressionService, logger logger.Logger) *EventService {
	return &EventService{
		repo:        repo,
		suppression: suppression,
		logger:      logger,
	}
}

// List returns a filtered page of events.
func (s *EventService) List(ctx context.Context, userID string, params domain.EventListParams) ([]*domain.EmailEvent, domain.Pagination, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EventService", "List")
	defer span.End()

	events, total, err := s.repo.List(ctx, userID, params)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, domain.Pagination{}, fmt.Errorf("failed to list events: %w", err)
	}
	return events, domain.NewPagination(params.Page, params.Limit, total), nil
}

// GetByMessageID returns the message's events grouped by recipient.
func (s *EventService) GetByMessageID(ctx context.Context, userID, messageID string) ([]*domain.RecipientEvents, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EventService", "GetByMessageID")
	defer span.End()

	events, err := s.repo.ListByMessageID(ctx, userID, messageID)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list message events: %w", err)
	}
	if len(events) == 0 {
		return nil, &domain.ErrNotFound{Entity: "message", ID: messageID}
	}

	byRecipient := make(map[string]*domain.RecipientEvents)
	grouped := []*domain.RecipientEvents{}
	for _, event := range events {
		group, ok := byRecipient[event.RecipientEmail]
		if !ok {
			group = &domain.RecipientEvents{RecipientEmail: event.RecipientEmail}
			byRecipient[event.RecipientEmail] = group
			grouped = append(grouped, group)
		}
		group.Events = append(group.Events, event)
	}
	return grouped, nil
}

// GetStats aggregates per-type counts over the window and derives rates
// as 2-decimal percentage strings. All rates use the sent total as the
// denominator; sent includes messages that later progressed.
func (s *EventService) GetStats(ctx context.Context, userID string, startDate, endDate *time.Time) (*domain.EventStats, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EventService", "GetStats")
	defer span.End()

	counts, err := s.repo.Stats(ctx, userID, startDate, endDate)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to get event stats: %w", err)
	}

	stats := &domain.EventStats{
		TotalSent:  counts[domain.EventSent] + counts[domain.EventDelivered],
		Delivered:  counts[domain.EventDelivered],
		Opened:     counts[domain.EventOpened],
		Clicked:    counts[domain.EventClicked],
		Bounced:    counts[domain.EventBounced],
		Complained: counts[domain.EventComplained],
		Failed:     counts[domain.EventFailed],
	}
	stats.DeliveryRate = percentage(stats.Delivered, stats.TotalSent)
	stats.OpenRate = percentage(stats.Opened, stats.TotalSent)
	stats.ClickRate = percentage(stats.Clicked, stats.TotalSent)
	stats.BounceRate = percentage(stats.Bounced, stats.TotalSent)

	return stats, nil
}

func percentage(n, total int) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(n)/float64(total)*100)
}

// Ingest records an externally reported event and folds terminal types
// into the suppression list.
func (s *EventService) Ingest(ctx context.Context, auth *domain.AuthContext, req *domain.IngestEventRequest) (*domain.EmailEvent, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EventService", "Ingest")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	eventID := crypto.NewEventID()
	messageID := req.MessageID
	if messageID == "" {
		messageID = "manual_" + eventID
	}

	event := &domain.EmailEvent{
		ID:             eventID,
		UserID:         auth.User.ID,
		MessageID:      messageID,
		EventType:      req.EventType,
		RecipientEmail: req.RecipientEmail,
		SendingDomain:  auth.Domain.Name,
		Metadata:       req.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := s.applySuppression(ctx, auth, event); err != nil {
		// The event row is already durable; suppression bookkeeping is
		// logged but does not fail the ingestion.
		s.logger.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.EventType,
			"error":      err.Error(),
		}).Error("Failed to apply suppression for ingested event")
	}

	return event, nil
}

func (s *EventService) applySuppression(ctx context.Context, auth *domain.AuthContext, event *domain.EmailEvent) error {
	sourceEventID := event.ID
	domainID := auth.Domain.ID

	switch event.EventType {
	case domain.EventComplained:
		_, err := s.suppression.Add(ctx, auth.User.ID, event.RecipientEmail, domain.SuppressionComplaint, &sourceEventID, &domainID, nil)
		return err
	case domain.EventUnsubscribed:
		_, err := s.suppression.Add(ctx, auth.User.ID, event.RecipientEmail, domain.SuppressionUnsubscribe, &sourceEventID, &domainID, nil)
		return err
	case domain.EventBounced:
		if bounceType, _ := event.Metadata["bounceType"].(string); bounceType == domain.SuppressionSoftBounce {
			_, err := s.suppression.HandleSoftBounce(ctx, auth.User.ID, event.RecipientEmail, &sourceEventID, &domainID, nil)
			return err
		}
		_, err := s.suppression.Add(ctx, auth.User.ID, event.RecipientEmail, domain.SuppressionHardBounce, &sourceEventID, &domainID, nil)
		return err
	}
	return nil
}
