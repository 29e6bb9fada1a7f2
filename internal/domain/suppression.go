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

// Suppression reasons. Every reason except soft_bounce blocks future sends.
const (
	SuppressionHardBounce  = "hard_bounce"
	SuppressionSoftBounce  = "soft_bounce"
	SuppressionComplaint   = "complaint"
	SuppressionUnsubscribe = "unsubscribe"
	SuppressionManual      = "manual"
)

// BlockingReasons are the reasons that exclude a recipient from sends.
var BlockingReasons = []string{
	SuppressionHardBounce,
	SuppressionComplaint,
	SuppressionUnsubscribe,
	SuppressionManual,
}

// ValidSuppressionReasons lists every accepted reason value.
var ValidSuppressionReasons = []string{
	SuppressionHardBounce,
	SuppressionSoftBounce,
	SuppressionComplaint,
	SuppressionUnsubscribe,
	SuppressionManual,
}

// IsValidSuppressionReason reports whether r is a known reason.
func IsValidSuppressionReason(r string) bool {
	for _, v := range ValidSuppressionReasons {
		if v == r {
			return true
		}
	}
	return false
}

// SoftBouncePromotionThreshold is the accumulated soft-bounce count at
// which a row is upgraded to hard_bounce.
const SoftBouncePromotionThreshold = 3

// Suppression is one blocklist row, unique per (userId, email). A nil
// DomainID means the suppression applies across all of the user's domains.
type Suppression struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	DomainID      *string   `json:"domain_id,omitempty"`
	Email         string    `json:"email"`
	Reason        string    `json:"reason"`
	SourceEventID *string   `json:"source_event_id,omitempty"`
	Metadata      MapOfAny  `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NormalizeEmail lower-trims an address the way suppression rows store it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SuppressionListParams contains filters for listing suppressions
type SuppressionListParams struct {
	Page     int
	Limit    int
	Offset   int
	Reason   string
	Email    string
	DomainID string
}

// FromQuery parses query parameters into SuppressionListParams
func (p *SuppressionListParams) FromQuery(query url.Values) error {
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

	p.Reason = query.Get("reason")
	p.Email = query.Get("email")
	p.DomainID = query.Get("domainId")

	return p.Validate()
}

// Validate checks bounds and enumerations after parsing.
func (p *SuppressionListParams) Validate() error {
	if p.Page < 1 {
		return NewValidationError("page must be greater than 0")
	}
	if p.Limit < 1 || p.Limit > 100 {
		return NewValidationError("limit must be between 1 and 100")
	}
	if p.Reason != "" && !IsValidSuppressionReason(p.Reason) {
		return NewValidationError(fmt.Sprintf("invalid reason: %s", p.Reason))
	}
	p.Offset = (p.Page - 1) * p.Limit
	return nil
}

// CreateSuppressionRequest is the body of POST /api/v1/suppressions.
type CreateSuppressionRequest struct {
	Email    string   `json:"email"`
	Reason   string   `json:"reason"`
	DomainID *string  `json:"domainId,omitempty"`
	Metadata MapOfAny `json:"metadata,omitempty"`
}

// Validate normalizes the email and checks the reason enumeration.
func (r *CreateSuppressionRequest) Validate() error {
	if r.Email == "" {
		return NewValidationError("email is required")
	}
	if !govalidator.IsEmail(r.Email) {
		return NewValidationError(fmt.Sprintf("invalid email: %s", r.Email))
	}
	r.Email = NormalizeEmail(r.Email)
	if r.Reason == "" {
		r.Reason = SuppressionManual
	}
	if !IsValidSuppressionReason(r.Reason) {
		return NewValidationError(fmt.Sprintf("invalid reason: %s", r.Reason))
	}
	return nil
}

// SuppressionStats breaks the user's suppression rows down by reason.
type SuppressionStats struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"byReason"`
}

//go:generate mockgen -destination mocks/mock_suppression_repository.go -package mocks github.com/relaypost/relaypost/internal/domain SuppressionRepository

// SuppressionRepository persists the blocklist.
type SuppressionRepository interface {
	// CheckBlocked returns the subset of emails (already normalized) that
	// have a blocking row for the user within the domain scope. When
	// domainID is empty only global rows match.
	CheckBlocked(ctx context.Context, userID string, emails []string, domainID string) ([]string, error)

	// GetByEmail returns the user's row for the address, or *ErrNotFound.
	GetByEmail(ctx context.Context, userID, email string) (*Suppression, error)

	// Create inserts a new row.
	Create(ctx context.Context, s *Suppression) error

	// Update rewrites reason and metadata of an existing row.
	Update(ctx context.Context, s *Suppression) error

	// Delete removes the row iff it belongs to the user. Returns
	// *ErrNotFound when no row was deleted.
	Delete(ctx context.Context, userID, id string) error

	// List returns a filtered page plus the total row count.
	List(ctx context.Context, userID string, params SuppressionListParams) ([]*Suppression, int, error)

	// Stats counts rows grouped by reason.
	Stats(ctx context.Context, userID string) (*SuppressionStats, error)
}

// SuppressionService is the suppression engine.
type SuppressionService interface {
	// CheckSuppressed returns which of the given addresses are blocked for
	// the user within the domain scope. Input emails are normalized.
	CheckSuppressed(ctx context.Context, userID string, emails []string, domainID string) ([]string, error)

	// Add inserts a suppression row, or returns the existing row unchanged
	// when one already covers (userID, email).
	Add(ctx context.Context, userID, email, reason string, sourceEventID, domainID *string, metadata MapOfAny) (*Suppression, error)

	// HandleSoftBounce accumulates soft bounces and promotes the row to
	// hard_bounce once the count reaches the threshold.
	HandleSoftBounce(ctx context.Context, userID, email string, sourceEventID, domainID *string, metadata MapOfAny) (*Suppression, error)

	// Remove deletes the user's suppression by id.
	Remove(ctx context.Context, userID, id string) error

	List(ctx context.Context, userID string, params SuppressionListParams) ([]*Suppression, Pagination, error)
	GetStats(ctx context.Context, userID string) (*SuppressionStats, error)
}
