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

func TestSuppressionRepository_CheckBlocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepository(db)
	ctx := context.Background()

	t.Run("returns blocked subset", func(t *testing.T) {
		mock.ExpectQuery("SELECT DISTINCT email(.+)domain_id IS NULL OR domain_id").
			WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("bob@x.com"))

		blocked, err := repo.CheckBlocked(ctx, "user1", []string{"bob@x.com", "ok@x.com"}, "dom1")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob@x.com"}, blocked)
	})

	t.Run("no domain scopes to global rows only", func(t *testing.T) {
		mock.ExpectQuery("SELECT DISTINCT email(.+)domain_id IS NULL\\s*$").
			WillReturnRows(sqlmock.NewRows([]string{"email"}))

		blocked, err := repo.CheckBlocked(ctx, "user1", []string{"bob@x.com"}, "")
		require.NoError(t, err)
		assert.Empty(t, blocked)
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		blocked, err := repo.CheckBlocked(ctx, "user1", nil, "dom1")
		require.NoError(t, err)
		assert.Empty(t, blocked)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepository(db)
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "domain_id", "email", "reason", "source_event_id", "metadata", "created_at",
		}).AddRow("sup1", "user1", nil, "bob@x.com", "soft_bounce", nil, []byte(`{"softBounceCount":2}`), now)

		mock.ExpectQuery("SELECT(.+)FROM email_suppressions").
			WithArgs("user1", "bob@x.com").
			WillReturnRows(rows)

		s, err := repo.GetByEmail(context.Background(), "user1", "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, "soft_bounce", s.Reason)
		assert.EqualValues(t, 2, s.Metadata["softBounceCount"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.+)FROM email_suppressions").
			WithArgs("user1", "none@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByEmail(context.Background(), "user1", "none@x.com")
		var notFound *domain.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepository(db)

	t.Run("deletes owned row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM email_suppressions").
			WithArgs("user1", "sup1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(context.Background(), "user1", "sup1"))
	})

	t.Run("missing or foreign row returns not found", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM email_suppressions").
			WithArgs("user1", "other").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), "user1", "other")
		var notFound *domain.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepository_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepository(db)

	rows := sqlmock.NewRows([]string{"reason", "count"}).
		AddRow("hard_bounce", 3).
		AddRow("complaint", 1)
	mock.ExpectQuery("SELECT reason, COUNT(.+)GROUP BY reason").
		WithArgs("user1").
		WillReturnRows(rows)

	stats, err := repo.Stats(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByReason["hard_bounce"])
	require.NoError(t, mock.ExpectationsWereMet())
}
