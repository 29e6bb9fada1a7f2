package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaypost/relaypost/internal/domain"
)

// AuthRepository implements domain.AuthRepository
type AuthRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new authentication repository
func NewAuthRepository(db *sql.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// GetAPIKeyByHash resolves an API-key hash to its full tenancy context.
// The billing join is LEFT so users without a billing row still resolve.
func (r *AuthRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.AuthContext, error) {
	query := `
		SELECT
			k.id, k.user_id, k.domain_id, k.name, k.key_hash, k.is_active, k.last_used_at,
			d.id, d.user_id, d.name, d.txt_verified,
			u.id, u.email, u.name,
			b.id, b.user_id, b.email_limit, b.email_used
		FROM domain_api_keys k
		JOIN domains d ON d.id = k.domain_id
		JOIN users u ON u.id = k.user_id
		LEFT JOIN user_billing b ON b.user_id = u.id
		WHERE k.key_hash = $1
		LIMIT 1
	`

	var (
		apiKey  domain.DomainAPIKey
		dom     domain.Domain
		user    domain.User
		billID  sql.NullString
		billUID sql.NullString
		limit   sql.NullInt64
		used    sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(
		&apiKey.ID, &apiKey.UserID, &apiKey.DomainID, &apiKey.Name,
		&apiKey.KeyHash, &apiKey.IsActive, &apiKey.LastUsedAt,
		&dom.ID, &dom.UserID, &dom.Name, &dom.TXTVerified,
		&user.ID, &user.Email, &user.Name,
		&billID, &billUID, &limit, &used,
	)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "api key", ID: keyHash}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	auth := &domain.AuthContext{
		APIKey: &apiKey,
		Domain: &dom,
		User:   &user,
	}
	if billID.Valid {
		auth.Billing = &domain.UserBilling{
			ID:         billID.String,
			UserID:     billUID.String,
			EmailLimit: int(limit.Int64),
			EmailUsed:  int(used.Int64),
		}
	}

	return auth, nil
}

// TouchLastUsed updates the key's last_used_at timestamp.
func (r *AuthRepository) TouchLastUsed(ctx context.Context, keyID string, usedAt time.Time) error {
	query := `UPDATE domain_api_keys SET last_used_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, keyID, usedAt); err != nil {
		return fmt.Errorf("failed to update last_used_at: %w", err)
	}
	return nil
}
