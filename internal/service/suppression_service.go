package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

// SuppressionService is the suppression engine: blocking checks at send
// time, idempotent additions, and soft-bounce accumulation.
type SuppressionService struct {
	repo   domain.SuppressionRepository
	logger logger.Logger
}

// NewSuppressionService creates a new suppression service
func NewSuppressionService(repo domain.SuppressionRepository, logger logger.Logger) *SuppressionService {
	return &SuppressionService{
		repo:   repo,
		logger: logger,
	}
}

// CheckSuppressed returns which of the given addresses are blocked for
// the user within the domain scope.
func (s *SuppressionService) CheckSuppressed(ctx context.Context, userID string, emails []string, domainID string) ([]string, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SuppressionService", "CheckSuppressed")
	defer span.End()

	normalized := make([]string, 0, len(emails))
	for _, email := range emails {
		normalized = append(normalized, domain.NormalizeEmail(email))
	}

	suppressed, err := s.repo.CheckBlocked(ctx, userID, normalized, domainID)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to check suppressions: %w", err)
	}
	return suppressed, nil
}

// Add inserts a suppression row. When a row already exists for the
// address it is returned unchanged, whatever its reason.
func (s *SuppressionService) Add(ctx context.Context, userID, email, reason string, sourceEventID, domainID *string, metadata domain.MapOfAny) (*domain.Suppression, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SuppressionService", "Add")
	defer span.End()

	email = domain.NormalizeEmail(email)
	if !domain.IsValidSuppressionReason(reason) {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid reason: %s", reason))
	}

	existing, err := s.repo.GetByEmail(ctx, userID, email)
	if err == nil {
		return existing, nil
	}
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to check existing suppression: %w", err)
	}

	suppression := &domain.Suppression{
		ID:            uuid.New().String(),
		UserID:        userID,
		DomainID:      domainID,
		Email:         email,
		Reason:        reason,
		SourceEventID: sourceEventID,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, suppression); err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to create suppression: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"email":   email,
		"reason":  reason,
	}).Info("Added suppression")

	return suppression, nil
}

// HandleSoftBounce accumulates soft bounces for the address and promotes
// the row to hard_bounce once the count reaches the threshold. Rows with
// a non-soft reason are never downgraded.
func (s *SuppressionService) HandleSoftBounce(ctx context.Context, userID, email string, sourceEventID, domainID *string, metadata domain.MapOfAny) (*domain.Suppression, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SuppressionService", "HandleSoftBounce")
	defer span.End()

	email = domain.NormalizeEmail(email)
	now := time.Now().UTC()

	existing, err := s.repo.GetByEmail(ctx, userID, email)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			tracing.MarkSpanError(ctx, err)
			return nil, fmt.Errorf("failed to check existing suppression: %w", err)
		}

		first := domain.MapOfAny{
			"softBounceCount": 1,
			"firstBounceAt":   now.Format(time.RFC3339),
		}
		for k, v := range metadata {
			first[k] = v
		}
		suppression := &domain.Suppression{
			ID:            uuid.New().String(),
			UserID:        userID,
			DomainID:      domainID,
			Email:         email,
			Reason:        domain.SuppressionSoftBounce,
			SourceEventID: sourceEventID,
			Metadata:      first,
			CreatedAt:     now,
		}
		if err := s.repo.Create(ctx, suppression); err != nil {
			tracing.MarkSpanError(ctx, err)
			return nil, fmt.Errorf("failed to create suppression: %w", err)
		}
		return suppression, nil
	}

	if existing.Reason != domain.SuppressionSoftBounce {
		return existing, nil
	}

	newCount := softBounceCount(existing.Metadata) + 1
	if existing.Metadata == nil {
		existing.Metadata = domain.MapOfAny{}
	}
	existing.Metadata["softBounceCount"] = newCount
	existing.Metadata["lastBounceAt"] = now.Format(time.RFC3339)

	if newCount >= domain.SoftBouncePromotionThreshold {
		existing.Reason = domain.SuppressionHardBounce
		existing.Metadata["upgradedAt"] = now.Format(time.RFC3339)
		existing.Metadata["upgradeReason"] = fmt.Sprintf("%d consecutive soft bounces", newCount)

		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"email":   email,
			"count":   newCount,
		}).Info("Promoted soft bounce to hard bounce")
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to update suppression: %w", err)
	}
	return existing, nil
}

// softBounceCount reads the accumulated count out of the metadata JSON.
// A row without a count is treated as having bounced once already.
func softBounceCount(metadata domain.MapOfAny) int {
	if metadata == nil {
		return 1
	}
	switch v := metadata["softBounceCount"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 1
	}
}

// Remove deletes the user's suppression by id.
func (s *SuppressionService) Remove(ctx context.Context, userID, id string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "SuppressionService", "Remove")
	defer span.End()

	return s.repo.Delete(ctx, userID, id)
}

// List returns a filtered page of suppressions.
func (s *SuppressionService) List(ctx context.Context, userID string, params domain.SuppressionListParams) ([]*domain.Suppression, domain.Pagination, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SuppressionService", "List")
	defer span.End()

	suppressions, total, err := s.repo.List(ctx, userID, params)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, domain.Pagination{}, fmt.Errorf("failed to list suppressions: %w", err)
	}
	return suppressions, domain.NewPagination(params.Page, params.Limit, total), nil
}

// GetStats counts the user's suppressions grouped by reason.
func (s *SuppressionService) GetStats(ctx context.Context, userID string) (*domain.SuppressionStats, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "SuppressionService", "GetStats")
	defer span.End()

	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to get suppression stats: %w", err)
	}
	return stats, nil
}
