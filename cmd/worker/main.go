package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/relaypost/relaypost/config"
	"github.com/relaypost/relaypost/internal/database"
	"github.com/relaypost/relaypost/internal/queue"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/internal/worker"
	"github.com/relaypost/relaypost/pkg/logger"
	"github.com/relaypost/relaypost/pkg/relay"
	"github.com/relaypost/relaypost/pkg/tracing"
)

var osExit = os.Exit

func runWorker(cfg *config.Config, workerLogger logger.Logger) error {
	tracing.Init(tracing.Config{
		Enabled:             cfg.Tracing.Enabled,
		ServiceName:         cfg.Tracing.ServiceName + "-worker",
		SamplingProbability: cfg.Tracing.SamplingProbability,
	})

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	relayClient := relay.NewSMTPClient(relay.Config{
		Host:        cfg.Relay.Host,
		Port:        cfg.Relay.Port,
		InsecureTLS: cfg.Relay.InsecureTLS,
	})

	processor := worker.NewProcessor(
		relayClient,
		repository.NewEventRepository(db),
		repository.NewBillingRepository(db),
		workerLogger,
	)

	consumer, err := queue.NewConsumer(queue.Config{
		RedisURL:    cfg.Redis.URL,
		Concurrency: cfg.Worker.Concurrency,
		RatePerSec:  cfg.Worker.RatePerSec,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}, processor.Process, workerLogger)
	if err != nil {
		return fmt.Errorf("failed to create queue consumer: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var g errgroup.Group
	g.Go(func() error {
		workerLogger.WithField("concurrency", cfg.Worker.Concurrency).
			WithField("rate_per_sec", cfg.Worker.RatePerSec).
			Info("Worker started")
		return consumer.Run()
	})
	g.Go(func() error {
		sig := <-shutdown
		workerLogger.WithField("signal", sig.String()).Info("Shutdown signal received - draining jobs")
		consumer.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	workerLogger.Info("Worker shut down gracefully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	workerLogger := logger.NewLogger(cfg.LogLevel)

	if err := runWorker(cfg, workerLogger); err != nil {
		workerLogger.WithField("error", err.Error()).Error("Worker error")
		osExit(1)
	}
}
