package service

import (
	"context"
	"time"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/crypto"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// TrackingService registers pixel and redirect hits and emits first-touch
// events.
type TrackingService struct {
	repo   domain.TrackingRepository
	events domain.EventRepository
	logger logger.Logger
}

// NewTrackingService creates a new tracking service
func NewTrackingService(repo domain.TrackingRepository, events domain.EventRepository, logger logger.Logger) *TrackingService {
	return &TrackingService{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// RecordOpen registers one pixel hit. Every hit advances the counter;
// only the first inserts an opened event. Failures are swallowed so the
// pixel always resolves.
func (s *TrackingService) RecordOpen(ctx context.Context, id, ipAddress, userAgent string) {
	ctx, span := tracing.StartServiceSpan(ctx, "TrackingService", "RecordOpen")
	defer span.End()

	touch, err := s.repo.TouchOpen(ctx, id, time.Now().UTC())
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"tracking_id": id,
			"error":       err.Error(),
		}).Debug("Failed to register open")
		return
	}

	if !touch.FirstTouch {
		return
	}

	open := touch.Open
	event := &domain.EmailEvent{
		ID:             crypto.NewEventID(),
		UserID:         open.UserID,
		MessageID:      open.MessageID,
		EventType:      domain.EventOpened,
		RecipientEmail: open.RecipientEmail,
		SendingDomain:  open.SendingDomain,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		Metadata: domain.MapOfAny{
			"trackingId": id,
			"openCount":  touch.OpenCount,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"tracking_id": id,
			"message_id":  open.MessageID,
			"error":       err.Error(),
		}).Error("Failed to record opened event")
	}
}

// RecordClick registers one redirect hit and returns the original URL.
func (s *TrackingService) RecordClick(ctx context.Context, id, ipAddress, userAgent string) (string, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "TrackingService", "RecordClick")
	defer span.End()

	touch, err := s.repo.TouchClick(ctx, id, time.Now().UTC())
	if err != nil {
		return "", err
	}

	link := touch.Link
	if touch.FirstTouch {
		event := &domain.EmailEvent{
			ID:             crypto.NewEventID(),
			UserID:         link.UserID,
			MessageID:      link.MessageID,
			EventType:      domain.EventClicked,
			RecipientEmail: link.RecipientEmail,
			SendingDomain:  link.SendingDomain,
			IPAddress:      ipAddress,
			UserAgent:      userAgent,
			Metadata: domain.MapOfAny{
				"trackingId":  id,
				"originalUrl": link.OriginalURL,
				"clickCount":  touch.ClickCount,
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.events.Create(ctx, event); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"tracking_id": id,
				"message_id":  link.MessageID,
				"error":       err.Error(),
			}).Error("Failed to record clicked event")
		}
	}

	return link.OriginalURL, nil
}
