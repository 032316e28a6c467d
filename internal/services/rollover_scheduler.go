package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zerobudget/internal/ledger"
)

// RolloverSchedulerConfig holds configuration for the rollover scheduler
type RolloverSchedulerConfig struct {
	// Interval is how often every owner's current month is checked (default: 1h)
	Interval time.Duration
}

// DefaultRolloverSchedulerConfig returns sensible defaults
func DefaultRolloverSchedulerConfig() RolloverSchedulerConfig {
	return RolloverSchedulerConfig{
		Interval: time.Hour,
	}
}

// RolloverStats reports the outcome of one scheduler pass.
type RolloverStats struct {
	Owners    int
	Created   int
	Projected int
	Failed    int
}

// RolloverScheduler makes sure every owner has a period for the current month
// and that recurring payments are projected into it.
type RolloverScheduler struct {
	store  ledger.Store
	engine *RolloverEngine
	clock  Clock
	config RolloverSchedulerConfig

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRolloverScheduler creates a new rollover scheduler
func NewRolloverScheduler(store ledger.Store, engine *RolloverEngine, clock Clock, config RolloverSchedulerConfig) *RolloverScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultRolloverSchedulerConfig().Interval
	}
	return &RolloverScheduler{
		store:  store,
		engine: engine,
		clock:  clock,
		config: config,
	}
}

// Start begins the scheduling loop. Returns an error if already running.
func (s *RolloverScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("rollover scheduler is already running")
	}
	s.running = true
	s.stopping = false
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Rollover scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop gracefully stops the scheduler and waits for the current pass.
func (s *RolloverScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	// Concurrent callers share one close and all wait for the loop.
	if !s.stopping {
		s.stopping = true
		close(s.stopCh)
	}
	done := s.doneCh
	s.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Rollover scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Rollover scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.stopping = false
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *RolloverScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RolloverScheduler) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.RunOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce ensures the current month for every known owner. A failing owner is
// logged and counted; the others still run.
func (s *RolloverScheduler) RunOnce(ctx context.Context) RolloverStats {
	var stats RolloverStats

	owners, err := s.store.ListOwners(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list owners for rollover", "error", err)
		return stats
	}
	year, month := s.clock.CurrentPeriod()

	for _, ownerID := range owners {
		select {
		case <-s.stopCh:
			return stats
		case <-ctx.Done():
			return stats
		default:
		}
		stats.Owners++

		p, result, err := s.engine.EnsurePeriod(ctx, ownerID, year, month)
		if err != nil {
			stats.Failed++
			slog.ErrorContext(ctx, "Failed to ensure current period",
				"owner_id", ownerID,
				"year", year,
				"month", month,
				"error", err)
			continue
		}
		if result != nil {
			stats.Created++
			stats.Projected += result.RecurringProjected
			continue
		}

		// Existing period: pick up payments added since it was created.
		n, err := s.engine.ProjectRecurring(ctx, ownerID, p.ID)
		if err != nil {
			stats.Failed++
			slog.ErrorContext(ctx, "Failed to project recurring payments",
				"owner_id", ownerID,
				"period_id", p.ID,
				"error", err)
			continue
		}
		stats.Projected += n
	}

	if stats.Created > 0 || stats.Projected > 0 || stats.Failed > 0 {
		slog.InfoContext(ctx, "Rollover pass complete",
			"owners", stats.Owners,
			"created", stats.Created,
			"projected", stats.Projected,
			"failed", stats.Failed)
	}
	return stats
}
