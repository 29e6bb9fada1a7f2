package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/crypto"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/tracing"
)

const bearerPrefix = "Bearer "

// AuthService resolves API keys into tenancy context
type AuthService struct {
	repo   domain.AuthRepository
	logger logger.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(repo domain.AuthRepository, logger logger.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		logger: logger,
	}
}

// Authenticate resolves the Authorization header to an AuthContext. A key
// is valid for sending iff it exists, is active, and its domain passed
// TXT verification.
func (s *AuthService) Authenticate(ctx context.Context, authHeader string) (*domain.AuthContext, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "AuthService", "Authenticate")
	defer span.End()

	if authHeader == "" {
		return nil, domain.NewAuthError(http.StatusUnauthorized, "Missing Authorization header")
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return nil, domain.NewAuthError(http.StatusUnauthorized, "Invalid Authorization format")
	}
	rawKey := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if rawKey == "" {
		return nil, domain.NewAuthError(http.StatusUnauthorized, "API key is empty")
	}

	auth, err := s.repo.GetAPIKeyByHash(ctx, crypto.Sha256Hex(rawKey))
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, domain.NewAuthError(http.StatusUnauthorized, "Invalid API key")
		}
		tracing.MarkSpanError(ctx, err)
		s.logger.WithField("error", err.Error()).Error("Failed to look up API key")
		return nil, domain.NewAuthError(http.StatusInternalServerError, "Failed to authenticate")
	}

	if !auth.APIKey.IsActive {
		return nil, domain.NewAuthError(http.StatusUnauthorized, "API key is inactive")
	}
	if !auth.Domain.TXTVerified {
		return nil, domain.NewAuthError(http.StatusForbidden, "Domain is not verified")
	}

	// Fire-and-forget; a failed timestamp update must never fail the request.
	go func(keyID string) {
		touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.TouchLastUsed(touchCtx, keyID, time.Now().UTC()); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"api_key_id": keyID,
				"error":      err.Error(),
			}).Debug("Failed to update API key last_used_at")
		}
	}(auth.APIKey.ID)

	return auth, nil
}
