package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// BillingRepository implements domain.BillingRepository
type BillingRepository struct {
	db *sql.DB
}

// NewBillingRepository creates a new billing repository
func NewBillingRepository(db *sql.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// IncrementUsage reserves n emails against the user's quota.
func (r *BillingRepository) IncrementUsage(ctx context.Context, userID string, n int) error {
	query := `UPDATE user_billing SET email_used = email_used + $2 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, n); err != nil {
		return fmt.Errorf("failed to increment email usage: %w", err)
	}
	return nil
}

// DecrementUsage releases n emails, never dropping below zero.
func (r *BillingRepository) DecrementUsage(ctx context.Context, userID string, n int) error {
	query := `UPDATE user_billing SET email_used = GREATEST(0, email_used - $2) WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, n); err != nil {
		return fmt.Errorf("failed to decrement email usage: %w", err)
	}
	return nil
}
