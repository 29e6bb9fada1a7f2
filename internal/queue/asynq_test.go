package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
)

func testConfig() Config {
	return Config{
		RedisURL:    "redis://localhost:6379",
		Concurrency: 2,
		RatePerSec:  100,
		MaxAttempts: 3,
	}
}

func TestNewProducer_InvalidRedisURL(t *testing.T) {
	_, err := NewProducer(Config{RedisURL: "not-a-url"}, logger.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

func TestConsumer_Wrap(t *testing.T) {
	t.Run("decodes the job and invokes the handler", func(t *testing.T) {
		var got *domain.SendJob
		var gotDelivery domain.Delivery
		handler := func(_ context.Context, job *domain.SendJob, delivery domain.Delivery) error {
			got = job
			gotDelivery = delivery
			return nil
		}

		c, err := NewConsumer(testConfig(), handler, logger.NewTestLogger(t))
		require.NoError(t, err)

		job := &domain.SendJob{
			JobID:     "job1",
			MessageID: "<m@example.com>",
			To:        []string{"bob@x.com"},
		}
		payload, err := json.Marshal(job)
		require.NoError(t, err)

		err = c.wrap(handler)(context.Background(), asynq.NewTask(TypeSendEmail, payload))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "job1", got.JobID)
		assert.Equal(t, []string{"bob@x.com"}, got.To)
		// Outside a real asynq server there is no retry metadata.
		assert.Equal(t, 0, gotDelivery.Attempt)
	})

	t.Run("undecodable payload skips retries", func(t *testing.T) {
		handler := func(_ context.Context, _ *domain.SendJob, _ domain.Delivery) error {
			t.Fatal("handler should not run")
			return nil
		}

		c, err := NewConsumer(testConfig(), handler, logger.NewTestLogger(t))
		require.NoError(t, err)

		err = c.wrap(handler)(context.Background(), asynq.NewTask(TypeSendEmail, []byte("{broken")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("invalid redis url is rejected", func(t *testing.T) {
		_, err := NewConsumer(Config{RedisURL: ":::"}, nil, logger.NewTestLogger(t))
		require.Error(t, err)
	})
}
