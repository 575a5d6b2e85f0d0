package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/config"
	"github.com/adityahazarika/flash-sale-flow/internal/domain"
	"github.com/adityahazarika/flash-sale-flow/internal/metrics"
	"github.com/rs/zerolog"
)

// ReaperService reclaims stock from orders that never received a payment
// outcome. Each run pages through expired Pending orders up to a cap,
// partitions them into batches, and drives every order through the same
// rollback path as an explicit payment failure. A webhook landing between
// discovery and resolution is harmless: the resolver's status gate turns
// the reaper's attempt into a no-op.
type ReaperService struct {
	orders   OrderStore
	resolver *ResolverService
	cfg      config.ReaperConfig
	log      zerolog.Logger
}

func NewReaperService(orders OrderStore, resolver *ResolverService, cfg config.ReaperConfig, log zerolog.Logger) *ReaperService {
	return &ReaperService{
		orders:   orders,
		resolver: resolver,
		cfg:      cfg,
		log:      log.With().Str("component", "reaper").Logger(),
	}
}

// Report summarizes one run. Individual order failures never fail the
// run; only a discovery failure does.
type Report struct {
	Discovered      int
	Processed       int
	Succeeded       int
	AlreadyResolved int
	ValidationSkips int
	Failed          int
	Batches         int
}

func (r *ReaperService) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	cutoff := started.UTC().Add(-r.cfg.TimeoutWindow)

	expired, err := r.discover(ctx, cutoff)
	if err != nil {
		return Report{}, fmt.Errorf("discovery failed: %w", err)
	}

	r.log.Info().
		Int("expired", len(expired)).
		Int("cap", r.cfg.MaxOrdersPerRun).
		Time("cutoff", cutoff).
		Msg("Collected expired orders")

	batches := partition(expired, r.cfg.BatchSize)
	report := Report{Discovered: len(expired), Batches: len(batches)}

	// Process at most ParallelBatches batches at a time, with a short
	// pause between groups to stay inside the store's throughput budget.
	parallel := r.cfg.ParallelBatches
	if parallel < 1 {
		parallel = 1
	}
	for start := 0; start < len(batches); start += parallel {
		end := start + parallel
		if end > len(batches) {
			end = len(batches)
		}
		group := batches[start:end]

		results := make([]Report, len(group))
		var wg sync.WaitGroup
		for i, batch := range group {
			wg.Add(1)
			go func(i int, batch []domain.Order) {
				defer wg.Done()
				results[i] = r.processBatch(ctx, batch)
			}(i, batch)
		}
		wg.Wait()

		for _, result := range results {
			report.Processed += result.Processed
			report.Succeeded += result.Succeeded
			report.AlreadyResolved += result.AlreadyResolved
			report.ValidationSkips += result.ValidationSkips
			report.Failed += result.Failed
		}

		if end < len(batches) {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(r.cfg.GroupPause):
			}
		}
	}

	metrics.ReaperRunsTotal.Inc()
	metrics.ReaperRunDuration.Observe(time.Since(started).Seconds())

	r.log.Info().
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("already_resolved", report.AlreadyResolved).
		Int("failed", report.Failed).
		Int("batches", report.Batches).
		Dur("duration", time.Since(started)).
		Msg("Reaper run finished")

	return report, nil
}

// discover pages through expired Pending orders until the per-run cap is
// reached or the store has no more pages. A cap of zero or less means
// discovery is bounded only by pagination.
func (r *ReaperService) discover(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	pageSize := r.cfg.ScanPageSize
	if pageSize < 1 {
		pageSize = 1
	}

	var expired []domain.Order
	cursor := ""

	for {
		page, next, err := r.orders.ListExpiredPending(ctx, cutoff, cursor, pageSize)
		if err != nil {
			return nil, err
		}

		for _, order := range page {
			expired = append(expired, order)
			if r.cfg.MaxOrdersPerRun > 0 && len(expired) >= r.cfg.MaxOrdersPerRun {
				return expired, nil
			}
		}

		if next == "" {
			return expired, nil
		}
		cursor = next
	}
}

// processBatch resolves the batch's orders concurrently and aggregates
// per-order results.
func (r *ReaperService) processBatch(ctx context.Context, batch []domain.Order) Report {
	var mu sync.Mutex
	var report Report
	var wg sync.WaitGroup

	for i := range batch {
		wg.Add(1)
		go func(order domain.Order) {
			defer wg.Done()
			result := r.processOrder(ctx, order)

			mu.Lock()
			report.Processed++
			switch result {
			case orderExpired:
				report.Succeeded++
			case orderAlreadyResolved:
				report.AlreadyResolved++
			case orderInvalid:
				report.ValidationSkips++
			default:
				report.Failed++
			}
			mu.Unlock()
		}(batch[i])
	}

	wg.Wait()
	return report
}

type orderResult int

const (
	orderExpired orderResult = iota
	orderAlreadyResolved
	orderInvalid
	orderFailed
)

func (r *ReaperService) processOrder(ctx context.Context, order domain.Order) orderResult {
	if order.ID == "" || domain.ValidateItems(order.Items) != nil {
		r.log.Warn().
			Str("order_id", order.ID).
			Msg("Skipping malformed expired order")
		metrics.ReaperOrdersTotal.WithLabelValues("invalid").Inc()
		return orderInvalid
	}

	err := r.resolver.Expire(ctx, &order)
	switch {
	case err == nil:
		metrics.ReaperOrdersTotal.WithLabelValues("rejected").Inc()
		return orderExpired
	case errors.Is(err, domain.ErrAlreadyResolved):
		// A late webhook won the race; the invariant is already restored.
		metrics.ReaperOrdersTotal.WithLabelValues("already_resolved").Inc()
		return orderAlreadyResolved
	default:
		r.log.Error().Err(err).
			Str("order_id", order.ID).
			Msg("Expired order resolution failed")
		metrics.ReaperOrdersTotal.WithLabelValues("failed").Inc()
		return orderFailed
	}
}

func partition(orders []domain.Order, size int) [][]domain.Order {
	if size < 1 {
		size = 1
	}
	var batches [][]domain.Order
	for start := 0; start < len(orders); start += size {
		end := start + size
		if end > len(orders) {
			end = len(orders)
		}
		batches = append(batches, orders[start:end])
	}
	return batches
}
