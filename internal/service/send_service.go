package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/crypto"
	"github.com/relaypost/relaypost/pkg/htmltrack"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// SendService is the accept-and-enqueue path: validation, rendering,
// tracking rewrite, suppression filtering, quota reservation, durable
// event rows, and the queued delivery job.
type SendService struct {
	templates   domain.TemplateService
	suppression domain.SuppressionService
	events      domain.EventRepository
	tracking    domain.TrackingRepository
	billing     domain.BillingRepository
	queue       domain.JobQueue
	rewriter    *htmltrack.Rewriter
	logger      logger.Logger
}

// NewSendService creates a new send service
func NewSendService(
	templates domain.TemplateService,
	suppression domain.SuppressionService,
	events domain.EventRepository,
	tracking domain.TrackingRepository,
	billing domain.BillingRepository,
	queue domain.JobQueue,
	rewriter *htmltrack.Rewriter,
	logger logger.Logger,
) *SendService {
	return &SendService{
		templates:   templates,
		suppression: suppression,
		events:      events,
		tracking:    tracking,
		billing:     billing,
		queue:       queue,
		rewriter:    rewriter,
		logger:      logger,
	}
}

// Send accepts one message. On success the intent is durable: the queued
// event rows and the job exist before the response is written. Quota is
// reserved optimistically; the worker rolls it back on terminal failure.
func (s *SendService) Send(ctx context.Context, auth *domain.AuthContext, req *domain.SendMessageRequest) (*domain.SendResult, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SendService", "Send")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	from, err := domain.ParseFromAddress(req.From)
	if err != nil {
		return nil, err
	}
	if from.Domain != strings.ToLower(auth.Domain.Name) {
		return nil, &domain.SenderDomainError{Domain: auth.Domain.Name}
	}

	subject, html, text := req.Subject, req.HTML, req.Text
	templateID := ""
	if req.TemplateID != "" {
		rendered, err := s.templates.Render(ctx, auth.User.ID, req.TemplateID, req.Variables)
		if err != nil {
			return nil, err
		}
		subject = rendered.Subject
		html = rendered.HTML
		templateID = rendered.TemplateID
	}
	if subject == "" {
		return nil, domain.NewValidationError("subject is required")
	}
	if html == "" && text == "" {
		return nil, domain.NewValidationError("either html or text content is required")
	}

	recipients := make([]string, 0, len(req.To))
	for _, addr := range req.To {
		recipients = append(recipients, domain.NormalizeEmail(addr))
	}

	suppressed, err := s.suppression.CheckSuppressed(ctx, auth.User.ID, recipients, auth.Domain.ID)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("error", err.Error()).Error("Failed to check suppressions")
		return nil, fmt.Errorf("failed to check suppressions: %w", err)
	}
	accepted := filterSuppressed(recipients, suppressed)

	if auth.Billing != nil && auth.Billing.EmailUsed+len(accepted) > auth.Billing.EmailLimit {
		return nil, &domain.QuotaExceededError{
			Used:  auth.Billing.EmailUsed,
			Limit: auth.Billing.EmailLimit,
		}
	}

	jobID := uuid.New().String()
	messageID := fmt.Sprintf("<%s@%s>", crypto.NewID(16), auth.Domain.Name)

	if len(accepted) == 0 {
		// Every recipient was suppressed; nothing to persist or enqueue.
		return &domain.SendResult{
			Success:    true,
			JobID:      jobID,
			MessageID:  messageID,
			Recipients: 0,
			Suppressed: len(suppressed),
			Status:     "queued",
		}, nil
	}

	var rewrite *htmltrack.Result
	if html != "" && !req.DisableTracking {
		rewrite = s.rewriter.Rewrite(html)
		html = rewrite.ModifiedHTML
	}

	now := time.Now().UTC()
	events := make([]*domain.EmailEvent, 0, len(accepted))
	for _, recipient := range accepted {
		events = append(events, &domain.EmailEvent{
			ID:             crypto.NewEventID(),
			UserID:         auth.User.ID,
			MessageID:      messageID,
			EventType:      domain.EventQueued,
			RecipientEmail: recipient,
			SendingDomain:  auth.Domain.Name,
			Subject:        subject,
			Metadata: domain.MapOfAny{
				"jobId":      jobID,
				"templateId": templateID,
				"apiKeyId":   auth.APIKey.ID,
			},
			CreatedAt: now,
		})
	}
	if err := s.events.CreateBatch(ctx, events); err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("error", err.Error()).Error("Failed to persist queued events")
		return nil, fmt.Errorf("failed to persist queued events: %w", err)
	}

	if rewrite != nil {
		if err := s.persistTracking(ctx, auth, messageID, accepted, rewrite, now); err != nil {
			tracing.MarkSpanError(ctx, err)
			s.logger.WithField("error", err.Error()).Error("Failed to persist tracking rows")
			return nil, fmt.Errorf("failed to persist tracking rows: %w", err)
		}
	}

	if auth.Billing != nil {
		if err := s.billing.IncrementUsage(ctx, auth.User.ID, len(accepted)); err != nil {
			tracing.MarkSpanError(ctx, err)
			s.logger.WithField("error", err.Error()).Error("Failed to reserve quota")
			return nil, fmt.Errorf("failed to reserve quota: %w", err)
		}
	}

	job := &domain.SendJob{
		JobID:       jobID,
		MessageID:   messageID,
		UserID:      auth.User.ID,
		DomainID:    auth.Domain.ID,
		APIKeyID:    auth.APIKey.ID,
		FromName:    from.Name,
		FromAddress: from.Address,
		Domain:      auth.Domain.Name,
		To:          accepted,
		Subject:     subject,
		HTML:        html,
		Text:        text,
		ReplyTo:     req.ReplyTo,
		Headers:     req.Headers,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		tracing.MarkSpanError(ctx, err)
		s.logger.WithFields(map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		}).Error("Failed to enqueue send job")
		return nil, fmt.Errorf("failed to enqueue send job: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"job_id":     jobID,
		"message_id": messageID,
		"recipients": len(accepted),
		"suppressed": len(suppressed),
	}).Info("Accepted message")

	return &domain.SendResult{
		Success:    true,
		JobID:      jobID,
		MessageID:  messageID,
		Recipients: len(accepted),
		Suppressed: len(suppressed),
		Status:     "queued",
	}, nil
}

// persistTracking writes the open row per recipient and the link rows.
// The first recipient's open row carries the bare pixel id; additional
// recipients get an indexed suffix. Link rows exist once per distinct URL
// and are attributed to the first recipient.
func (s *SendService) persistTracking(ctx context.Context, auth *domain.AuthContext, messageID string, recipients []string, rewrite *htmltrack.Result, now time.Time) error {
	if rewrite.OpenTrackingID != "" {
		opens := make([]*domain.TrackingOpen, 0, len(recipients))
		for i, recipient := range recipients {
			id := rewrite.OpenTrackingID
			if i > 0 {
				id = fmt.Sprintf("%s_%d", rewrite.OpenTrackingID, i)
			}
			opens = append(opens, &domain.TrackingOpen{
				ID:             id,
				UserID:         auth.User.ID,
				MessageID:      messageID,
				RecipientEmail: recipient,
				SendingDomain:  auth.Domain.Name,
				CreatedAt:      now,
			})
		}
		if err := s.tracking.CreateOpens(ctx, opens); err != nil {
			return err
		}
	}

	if len(rewrite.Links) > 0 {
		links := make([]*domain.TrackingLink, 0, len(rewrite.Links))
		for _, link := range rewrite.Links {
			links = append(links, &domain.TrackingLink{
				ID:             link.TrackingID,
				UserID:         auth.User.ID,
				MessageID:      messageID,
				RecipientEmail: recipients[0],
				SendingDomain:  auth.Domain.Name,
				OriginalURL:    link.OriginalURL,
				CreatedAt:      now,
			})
		}
		if err := s.tracking.CreateLinks(ctx, links); err != nil {
			return err
		}
	}

	return nil
}

func filterSuppressed(recipients, suppressed []string) []string {
	if len(suppressed) == 0 {
		return recipients
	}
	blocked := make(map[string]struct{}, len(suppressed))
	for _, email := range suppressed {
		blocked[email] = struct{}{}
	}
	accepted := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if _, ok := blocked[recipient]; !ok {
			accepted = append(accepted, recipient)
		}
	}
	return accepted
}
