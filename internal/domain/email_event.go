package domain

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// Lifecycle event types, in rough pipeline order.
const (
	EventQueued       = "queued"
	EventSent         = "sent"
	EventDelivered    = "delivered"
	EventOpened       = "opened"
	EventClicked      = "clicked"
	EventBounced      = "bounced"
	EventComplained   = "complained"
	EventUnsubscribed = "unsubscribed"
	EventFailed       = "failed"
)

// ValidEventTypes lists every accepted eventType value.
var ValidEventTypes = []string{
	EventQueued, EventSent, EventDelivered, EventOpened, EventClicked,
	EventBounced, EventComplained, EventUnsubscribed, EventFailed,
}

// IsValidEventType reports whether t is a known lifecycle event type.
func IsValidEventType(t string) bool {
	for _, v := range ValidEventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// EmailEvent is one lifecycle record for a (messageId, recipient) pair.
// The single queued row per pair is later updated in place to sent or
// failed; every other type is append-only.
type EmailEvent struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	MessageID      string    `json:"message_id"`
	EventType      string    `json:"event_type"`
	RecipientEmail string    `json:"recipient_email"`
	SendingDomain  string    `json:"sending_domain"`
	Subject        string    `json:"subject,omitempty"`
	Metadata       MapOfAny  `json:"metadata,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventListParams contains filters for listing email events
type EventListParams struct {
	Page           int
	Limit          int
	Offset         int
	EventType      string
	RecipientEmail string
	MessageID      string
	StartDate      *time.Time
	EndDate        *time.Time
}

// FromQuery parses query parameters into EventListParams
func (p *EventListParams) FromQuery(query url.Values) error {
	p.Page = 1
	p.Limit = 50

	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return NewValidationError("invalid page parameter")
		}
		p.Page = page
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return NewValidationError("invalid limit parameter")
		}
		p.Limit = limit
	}

	p.EventType = query.Get("eventType")
	p.RecipientEmail = query.Get("recipientEmail")
	p.MessageID = query.Get("messageId")

	var err error
	if p.StartDate, err = parseTimeParam(query.Get("startDate")); err != nil {
		return NewValidationError("invalid startDate parameter")
	}
	if p.EndDate, err = parseTimeParam(query.Get("endDate")); err != nil {
		return NewValidationError("invalid endDate parameter")
	}

	return p.Validate()
}

// Validate checks bounds and enumerations after parsing.
func (p *EventListParams) Validate() error {
	if p.Page < 1 {
		return NewValidationError("page must be greater than 0")
	}
	if p.Limit < 1 || p.Limit > 100 {
		return NewValidationError("limit must be between 1 and 100")
	}
	if p.EventType != "" && !IsValidEventType(p.EventType) {
		return NewValidationError(fmt.Sprintf("invalid eventType: %s", p.EventType))
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return NewValidationError("endDate must be after startDate")
	}
	p.Offset = (p.Page - 1) * p.Limit
	return nil
}

// parseTimeParam accepts RFC3339 timestamps and bare dates.
func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EventStats aggregates event counts and derived rates over a window.
// Rates are percentages formatted with two decimals.
type EventStats struct {
	TotalSent    int    `json:"totalSent"`
	Delivered    int    `json:"delivered"`
	Opened       int    `json:"opened"`
	Clicked      int    `json:"clicked"`
	Bounced      int    `json:"bounced"`
	Complained   int    `json:"complained"`
	Failed       int    `json:"failed"`
	DeliveryRate string `json:"deliveryRate"`
	OpenRate     string `json:"openRate"`
	ClickRate    string `json:"clickRate"`
	BounceRate   string `json:"bounceRate"`
}

// RecipientEvents groups a message's events for one recipient.
type RecipientEvents struct {
	RecipientEmail string        `json:"recipientEmail"`
	Events         []*EmailEvent `json:"events"`
}

// IngestEventRequest is the body of POST /api/v1/events.
type IngestEventRequest struct {
	EventType      string   `json:"eventType"`
	RecipientEmail string   `json:"recipientEmail"`
	MessageID      string   `json:"messageId,omitempty"`
	Metadata       MapOfAny `json:"metadata,omitempty"`
}

// Validate ensures the ingestion request is well formed.
func (r *IngestEventRequest) Validate() error {
	if r.EventType == "" {
		return NewValidationError("eventType is required")
	}
	if !IsValidEventType(r.EventType) {
		return NewValidationError(fmt.Sprintf("invalid eventType: %s", r.EventType))
	}
	if r.RecipientEmail == "" {
		return NewValidationError("recipientEmail is required")
	}
	if !govalidator.IsEmail(r.RecipientEmail) {
		return NewValidationError(fmt.Sprintf("invalid recipientEmail: %s", r.RecipientEmail))
	}
	r.RecipientEmail = strings.ToLower(strings.TrimSpace(r.RecipientEmail))
	return nil
}

//go:generate mockgen -destination mocks/mock_event_repository.go -package mocks github.com/relaypost/relaypost/internal/domain EventRepository

// EventRepository persists and queries email lifecycle events.
type EventRepository interface {
	// Create inserts a single event row.
	Create(ctx context.Context, event *EmailEvent) error

	// CreateBatch inserts the given events in one transaction.
	CreateBatch(ctx context.Context, events []*EmailEvent) error

	// List returns a filtered page of events for the user plus the total
	// row count for pagination.
	List(ctx context.Context, userID string, params EventListParams) ([]*EmailEvent, int, error)

	// ListByMessageID returns every event for the message, newest first.
	ListByMessageID(ctx context.Context, userID, messageID string) ([]*EmailEvent, error)

	// UpdateQueuedByMessageID transitions the message's queued rows to the
	// given type, merging metadata. Returns the number of rows updated.
	UpdateQueuedByMessageID(ctx context.Context, messageID, eventType string, metadata MapOfAny) (int, error)

	// Stats aggregates per-type counts for the user within the window.
	Stats(ctx context.Context, userID string, startDate, endDate *time.Time) (map[string]int, error)
}

// EventService drives the event API and external event ingestion.
type EventService interface {
	List(ctx context.Context, userID string, params EventListParams) ([]*EmailEvent, Pagination, error)
	GetByMessageID(ctx context.Context, userID, messageID string) ([]*RecipientEvents, error)
	GetStats(ctx context.Context, userID string, startDate, endDate *time.Time) (*EventStats, error)

	// Ingest records an externally reported event and folds terminal types
	// into the suppression list.
	Ingest(ctx context.Context, auth *AuthContext, req *IngestEventRequest) (*EmailEvent, error)
}
