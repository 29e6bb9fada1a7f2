package domain

import (
	"context"
)

//go:generate mockgen -destination mocks/mock_billing_repository.go -package mocks github.com/relaypost/relaypost/internal/domain BillingRepository

// BillingRepository adjusts the tenant's monthly usage counter. Both
// operations are expressed as atomic SQL arithmetic so concurrent sends
// never lose updates.
type BillingRepository interface {
	// IncrementUsage reserves n emails against the user's quota.
	IncrementUsage(ctx context.Context, userID string, n int) error

	// DecrementUsage releases n emails, clamped at zero.
	DecrementUsage(ctx context.Context, userID string, n int) error
}
