package domain

import (
	"context"
	"time"
)

// User is a tenant account. Read-only to the send pipeline.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Domain is a sending domain owned by a user. The pipeline only consumes
// the name and the TXT verification gate.
type Domain struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	TXTVerified bool   `json:"txt_verified"`
}

// DomainAPIKey authenticates send requests for one domain. Only the SHA-256
// hex digest of the raw key is stored.
type DomainAPIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DomainID   string     `json:"domain_id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// UserBilling tracks the tenant's monthly quota. EmailUsed is reserved
// optimistically at accept time and rolled back on terminal send failure.
type UserBilling struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	EmailLimit int    `json:"email_limit"`
	EmailUsed  int    `json:"email_used"`
}

// AuthContext is the resolved tenancy of an authenticated request.
type AuthContext struct {
	APIKey  *DomainAPIKey `json:"api_key"`
	Domain  *Domain       `json:"domain"`
	User    *User         `json:"user"`
	Billing *UserBilling  `json:"billing,omitempty"`
}

//go:generate mockgen -destination mocks/mock_auth_repository.go -package mocks github.com/relaypost/relaypost/internal/domain AuthRepository

// AuthRepository resolves API keys to their tenancy context.
type AuthRepository interface {
	// GetAPIKeyByHash returns the key matching the SHA-256 hex digest,
	// joined with its domain, user and the user's billing row (nil when
	// the user has none). Returns *ErrNotFound when no key matches.
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*AuthContext, error)

	// TouchLastUsed updates the key's last_used_at timestamp.
	TouchLastUsed(ctx context.Context, keyID string, usedAt time.Time) error
}

// AuthService authenticates the Authorization header of inbound requests.
type AuthService interface {
	// Authenticate resolves a raw Authorization header value into an
	// AuthContext, or returns *AuthError.
	Authenticate(ctx context.Context, authHeader string) (*AuthContext, error)
}

type contextKey string

const authContextKey contextKey = "auth_context"

// WithAuthContext returns a child context carrying the AuthContext.
func WithAuthContext(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext extracts the AuthContext attached by the auth middleware.
func AuthFromContext(ctx context.Context) (*AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey).(*AuthContext)
	return auth, ok
}
