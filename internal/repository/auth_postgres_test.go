package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypost/relaypost/internal/domain"
)

func TestAuthRepository_GetAPIKeyByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuthRepository(db)
	ctx := context.Background()

	columns := []string{
		"id", "user_id", "domain_id", "name", "key_hash", "is_active", "last_used_at",
		"id", "user_id", "name", "txt_verified",
		"id", "email", "name",
		"id", "user_id", "email_limit", "email_used",
	}

	t.Run("resolves full context", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(
			"key1", "user1", "dom1", "prod key", "abc123", true, nil,
			"dom1", "user1", "example.com", true,
			"user1", "alice@example.com", "Alice",
			"bill1", "user1", 1000, 10,
		)
		mock.ExpectQuery("SELECT(.+)FROM domain_api_keys").
			WithArgs("abc123").
			WillReturnRows(rows)

		auth, err := repo.GetAPIKeyByHash(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "key1", auth.APIKey.ID)
		assert.True(t, auth.APIKey.IsActive)
		assert.Equal(t, "example.com", auth.Domain.Name)
		assert.True(t, auth.Domain.TXTVerified)
		assert.Equal(t, "alice@example.com", auth.User.Email)
		require.NotNil(t, auth.Billing)
		assert.Equal(t, 1000, auth.Billing.EmailLimit)
		assert.Equal(t, 10, auth.Billing.EmailUsed)
	})

	t.Run("missing billing row resolves with nil billing", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(
			"key1", "user1", "dom1", "prod key", "abc123", true, nil,
			"dom1", "user1", "example.com", true,
			"user1", "alice@example.com", "Alice",
			nil, nil, nil, nil,
		)
		mock.ExpectQuery("SELECT(.+)FROM domain_api_keys").
			WithArgs("abc123").
			WillReturnRows(rows)

		auth, err := repo.GetAPIKeyByHash(ctx, "abc123")
		require.NoError(t, err)
		assert.Nil(t, auth.Billing)
	})

	t.Run("unknown hash returns not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.+)FROM domain_api_keys").
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(columns))

		auth, err := repo.GetAPIKeyByHash(ctx, "nope")
		assert.Nil(t, auth)
		var notFound *domain.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthRepository_TouchLastUsed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuthRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE domain_api_keys SET last_used_at").
		WithArgs("key1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastUsed(context.Background(), "key1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
