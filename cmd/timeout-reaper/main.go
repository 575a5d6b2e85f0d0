package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/config"
	"github.com/adityahazarika/flash-sale-flow/internal/logger"
	"github.com/adityahazarika/flash-sale-flow/internal/repository"
	"github.com/adityahazarika/flash-sale-flow/internal/retry"
	"github.com/adityahazarika/flash-sale-flow/internal/service"
	_ "github.com/lib/pq"
)

// Rejecting an expired order never publishes a fulfillment event, so the
// one-shot reaper runs without a broker connection.
type noopPublisher struct{}

func (noopPublisher) PublishOrderConfirmed(ctx context.Context, orderID string) error {
	return nil
}

func main() {
	log := logger.New("timeout-reaper")
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Database open error")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Database ping error")
	}

	orders := repository.NewOrderRepository(db)
	inventory := repository.NewInventoryRepository(db)

	resolver := service.NewResolverService(orders, inventory, noopPublisher{}, log).
		WithRetry(retry.Policy{
			Attempts:  cfg.Reaper.RetryAttempts,
			BaseDelay: cfg.Reaper.RetryBaseDelay,
		}, cfg.Reaper.InventoryConcurrency)
	reaper := service.NewReaperService(orders, resolver, cfg.Reaper, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	report, err := reaper.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reaper run failed")
		os.Exit(1)
	}

	log.Info().
		Int("discovered", report.Discovered).
		Int("succeeded", report.Succeeded).
		Int("already_resolved", report.AlreadyResolved).
		Int("validation_skips", report.ValidationSkips).
		Int("failed", report.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Reaper run complete")

	if report.Failed > 0 {
		os.Exit(1)
	}
}
