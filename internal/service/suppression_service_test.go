package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/pkg/logger"
)

func TestSuppressionService_CheckSuppressed_NormalizesEmails(t *testing.T) {
	repo := &repository.MockSuppressionRepository{}
	repo.On("CheckBlocked", mock.Anything, "user1", []string{"bob@x.com", "c@x.com"}, "dom1").
		Return([]string{"bob@x.com"}, nil)

	svc := NewSuppressionService(repo, logger.NewTestLogger(t))
	suppressed, err := svc.CheckSuppressed(context.Background(), "user1", []string{" Bob@X.com ", "c@x.com"}, "dom1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@x.com"}, suppressed)
	repo.AssertExpectations(t)
}

func TestSuppressionService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when absent", func(t *testing.T) {
		repo := &repository.MockSuppressionRepository{}
		repo.On("GetByEmail", mock.Anything, "user1", "bob@x.com").
			Return(nil, &domain.ErrNotFound{Entity: "suppression", ID: "bob@x.com"})
		repo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Suppression) bool {
			return s.Email == "bob@x.com" && s.Reason == domain.SuppressionManual && s.ID != ""
		})).Return(nil)

		svc := NewSuppressionService(repo, logger.NewTestLogger(t))
		s, err := svc.Add(ctx, "user1", " Bob@X.com ", domain.SuppressionManual, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "bob@x.com", s.Email)
		repo.AssertExpectations(t)
	})

	t.Run("idempotent when row exists", func(t *testing.T) {
		existing := &domain.Suppression{ID: "sup1", Email: "bob@x.com", Reason: domain.SuppressionComplaint}
		repo := &repository.MockSuppressionRepository{}
		repo.On("GetByEmail", mock.Anything, "user1", "bob@x.com").Return(existing, nil)

		svc := NewSuppressionService(repo, logger.NewTestLogger(t))
		s, err := svc.Add(ctx, "user1", "bob@x.com", domain.SuppressionHardBounce, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, existing, s)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown reason", func(t *testing.T) {
		svc := NewSuppressionService(&repository.MockSuppressionRepository{}, logger.NewTestLogger(t))
		_, err := svc.Add(ctx, "user1", "bob@x.com", "banished", nil, nil, nil)
		assert.Error(t, err)
	})
}

func TestSuppressionService_HandleSoftBounce(t *testing.T) {
	ctx := context.Background()

	t.Run("first bounce inserts soft_bounce row", func(t *testing.T) {
		repo := &repository.MockSuppressionRepository{}
		repo.On("GetByEmail", mock.Anything, "user1", "c@x.com").
			Return(nil, &domain.ErrNotFound{Entity: "suppression", ID: "c@x.com"})
		repo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Suppression) bool {
			return s.Reason == domain.SuppressionSoftBounce &&
				s.Metadata["softBounceCount"] == 1 &&
				s.Metadata["firstBounceAt"] != nil
		})).Return(nil)

		svc := NewSuppressionService(repo, logger.NewTestLogger(t))
		s, err := svc.HandleSoftBounce(ctx, "user1", "c@x.com", nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.SuppressionSoftBounce, s.Reason)
		repo.AssertExpectations(t)
	})

	t.Run("second bounce increments count", func(t *testing.T) {
		existing := &domain.Suppression{
			ID:       "sup1",
			Email:    "c@x.com",
			Reason:   domain.SuppressionSoftBounce,
			Metadata: domain.MapOfAny{"softBounceCount": float64(1)},
		}
		repo := &repository.MockSuppressionRepository{}
		repo.On("GetByEmail", mock.Anything, "user1", "c@x.com").Return(existing, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(s *domain.Suppression) bool {
			return s.Reason == domain.SuppressionSoftBounce && s.Metadata["softBounceCount"] == 2
		})).Return(nil)

		svc := NewSuppressionService(repo, logger.NewTestLogger(t))
		s, err := svc.HandleSoftBounce(ctx, "user1", "c@x.com", nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.SuppressionSoftBounce, s.Reason)
		repo.AssertExpectations(t)
	})

	t.Run("third bounce promotes to hard_bounce", func(t *testing.T) {
		existing := &domain.Suppression{
			ID:       "sup1",
			Email:    "c@x.com",
			Reason:   domain.SuppressionSoftBounce,
			Metadata: domain.MapOfAny{"softBounceCount": float64(2)},
		}
		repo := &repository.MockSuppressionRepository{}
		repo.On("GetByEmail", mock.Anything, "user1", "c@x.com").Return(existing, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(s *domain.Suppression) bool {
			return s.Reason == domain.SuppressionHardBounce &&
				s.Metadata["softBounceCount"] == 3 &&
				s.Metadata["upgradedAt"] != nil
		})).Return(nil)

		svc := NewSuppressionService(repo, logger.NewTestLogger(t))
		s, err := svc.HandleSoftBounce(ctx, "user1", "c@x.com", nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.SuppressionHardBounce, s.Reason)
		repo.AssertExpectations(t)
	})

	t.Run("never downgrades a non-soft row", func(t *testing.T) {
		existing := &domain.Suppression{
			ID:     "sup1",
			Email:  "c@x.com",
			Reason: domain.SuppressionHardBounce,
		}
		repo := &repository.MockSuppressionRepository{}
		repo.On("GetByEmail", mock.Anything, "user1", "c@x.com").Return(existing, nil)

		svc := NewSuppressionService(repo, logger.NewTestLogger(t))
		s, err := svc.HandleSoftBounce(ctx, "user1", "c@x.com", nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.SuppressionHardBounce, s.Reason)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
