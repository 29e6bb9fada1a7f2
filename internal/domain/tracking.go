package domain

import (
	"context"
	"time"
)

// TrackingOpen is one open-pixel row per (message, recipient). The id is
// the opaque token embedded in the pixel URL.
type TrackingOpen struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	MessageID      string     `json:"message_id"`
	RecipientEmail string     `json:"recipient_email"`
	SendingDomain  string     `json:"sending_domain"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	OpenCount      int        `json:"open_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TrackingLink is one rewritten anchor per distinct URL in a message.
type TrackingLink struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	MessageID      string     `json:"message_id"`
	RecipientEmail string     `json:"recipient_email"`
	SendingDomain  string     `json:"sending_domain"`
	OriginalURL    string     `json:"original_url"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
	ClickCount     int        `json:"click_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// OpenTouch is the result of registering one pixel hit.
type OpenTouch struct {
	Open       *TrackingOpen
	OpenCount  int
	FirstTouch bool
}

// ClickTouch is the result of registering one redirect hit.
type ClickTouch struct {
	Link       *TrackingLink
	ClickCount int
	FirstTouch bool
}

//go:generate mockgen -destination mocks/mock_tracking_repository.go -package mocks github.com/relaypost/relaypost/internal/domain TrackingRepository

// TrackingRepository persists tracking rows and registers hits. Counter
// updates are expressed in SQL so concurrent hits never lose increments.
type TrackingRepository interface {
	// CreateOpens inserts the per-recipient open rows for a message.
	CreateOpens(ctx context.Context, opens []*TrackingOpen) error

	// CreateLinks inserts the per-URL link rows for a message.
	CreateLinks(ctx context.Context, links []*TrackingLink) error

	// TouchOpen atomically increments open_count and sets opened_at on
	// first touch. Returns *ErrNotFound when the id is unknown.
	TouchOpen(ctx context.Context, id string, at time.Time) (*OpenTouch, error)

	// TouchClick mirrors TouchOpen for link rows.
	TouchClick(ctx context.Context, id string, at time.Time) (*ClickTouch, error)
}

// TrackingService handles pixel and redirect hits and emits first-touch
// events.
type TrackingService interface {
	// RecordOpen registers a pixel hit. It never returns an error for an
	// unknown id; the pixel must resolve regardless.
	RecordOpen(ctx context.Context, id, ipAddress, userAgent string)

	// RecordClick registers a redirect hit and returns the original URL.
	// Returns *ErrNotFound when the id is unknown.
	RecordClick(ctx context.Context, id, ipAddress, userAgent string) (string, error)
}
