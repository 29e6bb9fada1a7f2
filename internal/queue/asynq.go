// Package queue adapts the Redis-backed asynq broker to the delivery
// pipeline: a producer with jobId deduplication and a consumer with
// bounded concurrency, rate limiting and exponential retry backoff.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"github.com/relaypost/relaypost/internal/domain"
	"github.com/relaypost/relaypost/pkg/logger"
)

// TypeSendEmail is the task type of delivery jobs.
const TypeSendEmail = "email:send"

// Config mirrors the worker settings relevant to the queue.
type Config struct {
	RedisURL    string
	Concurrency int
	RatePerSec  int
	MaxAttempts int
}

// Producer enqueues delivery jobs. The jobId doubles as the task ID, so
// re-enqueueing the same job is a no-op.
type Producer struct {
	client      *asynq.Client
	maxAttempts int
	logger      logger.Logger
}

// NewProducer creates a queue producer connected to the Redis broker.
func NewProducer(cfg Config, logger logger.Logger) (*Producer, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &Producer{
		client:      asynq.NewClient(opt),
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}, nil
}

// Enqueue persists the job in the broker.
func (p *Producer) Enqueue(ctx context.Context, job *domain.SendJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal send job: %w", err)
	}

	task := asynq.NewTask(TypeSendEmail, payload)
	_, err = p.client.EnqueueContext(ctx, task,
		asynq.TaskID(job.JobID),
		asynq.MaxRetry(p.maxAttempts-1),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// Same jobId already enqueued; dedup contract says succeed.
		p.logger.WithField("job_id", job.JobID).Debug("Duplicate job enqueue ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue send job: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Producer) Close() error {
	return p.client.Close()
}

// Consumer drains delivery jobs and hands them to a SendJobHandler.
type Consumer struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewConsumer creates the queue consumer. Backoff is exponential with a
// one second base.
func NewConsumer(cfg Config, handler domain.SendJobHandler, log logger.Logger) (*Consumer, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Concurrency,
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return time.Second * (1 << n)
		},
		Logger: asynqLogger{log},
	})

	c := &Consumer{
		server:  server,
		mux:     asynq.NewServeMux(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		logger:  log,
	}
	c.mux.HandleFunc(TypeSendEmail, c.wrap(handler))
	return c, nil
}

func (c *Consumer) wrap(handler domain.SendJobHandler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var job domain.SendJob
		if err := json.Unmarshal(task.Payload(), &job); err != nil {
			// A payload that cannot be decoded will never succeed.
			return fmt.Errorf("failed to unmarshal send job: %v: %w", err, asynq.SkipRetry)
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		delivery := domain.Delivery{
			Attempt:     retried,
			MaxAttempts: maxRetry + 1,
		}
		return handler(ctx, &job, delivery)
	}
}

// Run blocks processing jobs until Shutdown is called.
func (c *Consumer) Run() error {
	return c.server.Run(c.mux)
}

// Shutdown waits for in-flight jobs to finish.
func (c *Consumer) Shutdown() {
	c.server.Shutdown()
}

// asynqLogger adapts the structured logger to asynq's logging interface.
type asynqLogger struct {
	log logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal(fmt.Sprint(args...)) }
