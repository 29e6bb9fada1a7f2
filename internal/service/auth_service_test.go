package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/pkg/crypto"
	"github.com/relaypost/relaypost/pkg/logger"
)

func validAuthContext() *domain.AuthContext {
	return &domain.AuthContext{
		APIKey: &domain.DomainAPIKey{ID: "key1", UserID: "user1", DomainID: "dom1", IsActive: true},
		Domain: &domain.Domain{ID: "dom1", UserID: "user1", Name: "example.com", TXTVerified: true},
		User:   &domain.User{ID: "user1", Email: "alice@example.com"},
		Billing: &domain.UserBilling{
			ID: "bill1", UserID: "user1", EmailLimit: 1000, EmailUsed: 0,
		},
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing header", func(t *testing.T) {
		svc := NewAuthService(&repository.MockAuthRepository{}, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "")
		authErr := requireAuthError(t, err)
		assert.Equal(t, http.StatusUnauthorized, authErr.Status)
		assert.Equal(t, "Missing Authorization header", authErr.Message)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		svc := NewAuthService(&repository.MockAuthRepository{}, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Basic abc")
		authErr := requireAuthError(t, err)
		assert.Equal(t, http.StatusUnauthorized, authErr.Status)
		assert.Equal(t, "Invalid Authorization format", authErr.Message)
	})

	t.Run("empty key", func(t *testing.T) {
		svc := NewAuthService(&repository.MockAuthRepository{}, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Bearer   ")
		authErr := requireAuthError(t, err)
		assert.Equal(t, "API key is empty", authErr.Message)
	})

	t.Run("unknown key", func(t *testing.T) {
		repo := &repository.MockAuthRepository{}
		repo.On("GetAPIKeyByHash", mock.Anything, crypto.Sha256Hex("nope")).
			Return(nil, &domain.ErrNotFound{Entity: "api key", ID: "x"})
		svc := NewAuthService(repo, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Bearer nope")
		authErr := requireAuthError(t, err)
		assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	})

	t.Run("backend failure maps to 500", func(t *testing.T) {
		repo := &repository.MockAuthRepository{}
		repo.On("GetAPIKeyByHash", mock.Anything, mock.Anything).
			Return(nil, assert.AnError)
		svc := NewAuthService(repo, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Bearer key")
		authErr := requireAuthError(t, err)
		assert.Equal(t, http.StatusInternalServerError, authErr.Status)
		assert.Equal(t, "Failed to authenticate", authErr.Message)
	})

	t.Run("inactive key", func(t *testing.T) {
		auth := validAuthContext()
		auth.APIKey.IsActive = false
		repo := &repository.MockAuthRepository{}
		repo.On("GetAPIKeyByHash", mock.Anything, mock.Anything).Return(auth, nil)
		svc := NewAuthService(repo, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Bearer key")
		authErr := requireAuthError(t, err)
		assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	})

	t.Run("unverified domain", func(t *testing.T) {
		auth := validAuthContext()
		auth.Domain.TXTVerified = false
		repo := &repository.MockAuthRepository{}
		repo.On("GetAPIKeyByHash", mock.Anything, mock.Anything).Return(auth, nil)
		svc := NewAuthService(repo, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Bearer key")
		authErr := requireAuthError(t, err)
		assert.Equal(t, http.StatusForbidden, authErr.Status)
	})

	t.Run("success touches last_used_at in background", func(t *testing.T) {
		auth := validAuthContext()
		repo := &repository.MockAuthRepository{}
		repo.On("GetAPIKeyByHash", mock.Anything, crypto.Sha256Hex("goodkey")).Return(auth, nil)

		touched := make(chan struct{})
		repo.On("TouchLastUsed", mock.Anything, "key1", mock.Anything).
			Run(func(mock.Arguments) { close(touched) }).
			Return(nil)

		svc := NewAuthService(repo, logger.NewTestLogger(t))

		got, err := svc.Authenticate(ctx, "Bearer goodkey")
		require.NoError(t, err)
		assert.Equal(t, "user1", got.User.ID)

		select {
		case <-touched:
		case <-time.After(2 * time.Second):
			t.Fatal("last_used_at was never touched")
		}
		repo.AssertExpectations(t)
	})

	t.Run("touch failure does not fail the request", func(t *testing.T) {
		auth := validAuthContext()
		repo := &repository.MockAuthRepository{}
		repo.On("GetAPIKeyByHash", mock.Anything, mock.Anything).Return(auth, nil)
		repo.On("TouchLastUsed", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
		svc := NewAuthService(repo, logger.NewTestLogger(t))

		_, err := svc.Authenticate(ctx, "Bearer goodkey")
		require.NoError(t, err)
	})
}

func requireAuthError(t *testing.T, err error) *domain.AuthError {
	t.Helper()
	require.Error(t, err)
	authErr, ok := err.(*domain.AuthError)
	require.True(t, ok, "expected *domain.AuthError, got %T", err)
	return authErr
}
