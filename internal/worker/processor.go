// Package worker processes queued delivery jobs: it dials the SMTP relay,
// transitions the message's event rows, and rolls back quota on terminal
// failure.
package worker

import (
	"context"
	"fmt"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/relay"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// Processor handles one delivery attempt per job.
type Processor struct {
	relay   relay.Client
	events  domain.EventRepository
	billing domain.BillingRepository
	logger  logger.Logger
}

// NewProcessor creates a new delivery processor
func NewProcessor(relayClient relay.Client, events domain.EventRepository, billing domain.BillingRepository, logger logger.Logger) *Processor {
	return &Processor{
		relay:   relayClient,
		events:  events,
		billing: billing,
		logger:  logger,
	}
}

// Process delivers one job. A returned error makes the queue retry; on
// the terminal attempt the reserved quota is released first.
func (p *Processor) Process(ctx context.Context, job *domain.SendJob, delivery domain.Delivery) error {
	ctx, span := tracing.StartServiceSpan(ctx, "Processor", "Process")
	defer span.End()
	tracing.AddAttribute(ctx, "job_id", job.JobID)
	tracing.AddAttribute(ctx, "attempt", delivery.Attempt)

	result, err := p.relay.Send(ctx, buildMessage(job))
	if err != nil {
		return p.handleFailure(ctx, job, delivery, err)
	}

	metadata := domain.MapOfAny{
		"response": result.Response,
		"accepted": result.Accepted,
		"rejected": result.Rejected,
	}
	if _, err := p.events.UpdateQueuedByMessageID(ctx, job.MessageID, domain.EventSent, metadata); err != nil {
		// Delivery succeeded; the event transition is retried by the next
		// attempt only if we fail the job, which would redeliver the mail.
		// Log and accept the lost transition instead.
		p.logger.WithFields(map[string]interface{}{
			"job_id":     job.JobID,
			"message_id": job.MessageID,
			"error":      err.Error(),
		}).Error("Failed to mark message sent")
	}

	p.logger.WithFields(map[string]interface{}{
		"job_id":     job.JobID,
		"message_id": job.MessageID,
		"recipients": len(job.To),
		"attempt":    delivery.Attempt,
	}).Info("Message relayed")

	return nil
}

func (p *Processor) handleFailure(ctx context.Context, job *domain.SendJob, delivery domain.Delivery, sendErr error) error {
	tracing.MarkSpanError(ctx, sendErr)

	metadata := domain.MapOfAny{
		"error":   sendErr.Error(),
		"attempt": delivery.Attempt + 1,
	}
	if _, err := p.events.UpdateQueuedByMessageID(ctx, job.MessageID, domain.EventFailed, metadata); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"job_id": job.JobID,
			"error":  err.Error(),
		}).Error("Failed to mark message failed")
	}

	if delivery.Terminal() {
		// Give back the optimistic quota reservation.
		if err := p.billing.DecrementUsage(ctx, job.UserID, len(job.To)); err != nil {
			p.logger.WithFields(map[string]interface{}{
				"job_id":  job.JobID,
				"user_id": job.UserID,
				"error":   err.Error(),
			}).Error("Failed to roll back quota")
		}
		p.logger.WithFields(map[string]interface{}{
			"job_id":     job.JobID,
			"message_id": job.MessageID,
			"attempts":   delivery.MaxAttempts,
			"error":      sendErr.Error(),
		}).Error("Message delivery failed terminally")
	} else {
		p.logger.WithFields(map[string]interface{}{
			"job_id":  job.JobID,
			"attempt": delivery.Attempt + 1,
			"error":   sendErr.Error(),
		}).Warn("Message delivery failed, will retry")
	}

	return fmt.Errorf("delivery attempt %d failed: %w", delivery.Attempt+1, sendErr)
}

// buildMessage maps a job to the relay envelope, stamping the tenancy
// headers and the stored Message-Id.
func buildMessage(job *domain.SendJob) *relay.Message {
	headers := map[string]string{
		"X-Message-Id": job.MessageID,
		"X-User-Id":    job.UserID,
		"X-Domain-Id":  job.DomainID,
		"X-API-Key-Id": job.APIKeyID,
	}
	for name, value := range job.Headers {
		headers[name] = value
	}

	return &relay.Message{
		MessageID:   job.MessageID,
		FromName:    job.FromName,
		FromAddress: job.FromAddress,
		To:          job.To,
		ReplyTo:     job.ReplyTo,
		Subject:     job.Subject,
		HTML:        job.HTML,
		Text:        job.Text,
		Headers:     headers,
	}
}
