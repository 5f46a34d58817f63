// Package scheduler drives the coordinator on a fixed interval and fans out
// published snapshots to registered notifiers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"walletmon/internal/coordinator"
	"walletmon/internal/metrics"
	"walletmon/internal/wallet"
)

// DefaultInterval matches the remote polling cadence expected by the host.
const DefaultInterval = 15 * time.Minute

// Refresher runs one refresh cycle. Implemented by coordinator.Coordinator.
type Refresher interface {
	Refresh(ctx context.Context) (coordinator.Snapshot, error)
}

// Notifier receives every successfully published snapshot. Notifier failures
// are logged, never fatal to the cycle.
type Notifier interface {
	SnapshotPublished(ctx context.Context, snap coordinator.Snapshot) error
}

// Config holds scheduler configuration.
type Config struct {
	// Interval between refresh cycles. Defaults to DefaultInterval.
	Interval time.Duration
}

// Scheduler owns the polling loop. The coordinator itself has no timers; all
// scheduling lives here.
type Scheduler struct {
	refresher Refresher
	notifiers []Notifier
	collector metrics.Collector
	interval  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler. A nil collector disables metrics.
func New(refresher Refresher, cfg Config, collector metrics.Collector, notifiers ...Notifier) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Scheduler{
		refresher: refresher,
		notifiers: notifiers,
		collector: collector,
		interval:  cfg.Interval,
	}
}

// Start begins the polling loop, running one cycle immediately. Returns an
// error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Scheduler started", "interval", s.interval)
	return nil
}

// Stop signals the loop to exit and waits for it or for ctx. Safe to call
// concurrently; only the first caller closes the stop channel.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning reports whether the polling loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// RunCycle runs one refresh on demand, outside the timer cadence, with the
// same error handling and notifier fan-out as a scheduled cycle.
func (s *Scheduler) RunCycle(ctx context.Context) (coordinator.Snapshot, error) {
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) (coordinator.Snapshot, error) {
	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.handleRefreshError(ctx, err)
		return snap, err
	}

	for _, n := range s.notifiers {
		if nerr := n.SnapshotPublished(ctx, snap); nerr != nil {
			slog.ErrorContext(ctx, "Snapshot notifier failed", "error", nerr)
		}
	}
	return snap, nil
}

// handleRefreshError logs per error kind. Reauth conditions are re-raised on
// every failing cycle so the credential prompt is never silently dropped.
func (s *Scheduler) handleRefreshError(ctx context.Context, err error) {
	if errors.Is(err, coordinator.ErrReauthRequired) {
		s.collector.ObserveReauthSignal()
		slog.ErrorContext(ctx, "Re-authentication required, waiting for a new credential", "error", err)
		return
	}

	var rateErr *wallet.RateLimitError
	if errors.As(err, &rateErr) {
		slog.WarnContext(ctx, "Rate limited by the Wallet API",
			"retry_after_seconds", rateErr.RetryAfter)
		return
	}

	slog.ErrorContext(ctx, "Scheduled refresh failed", "error", err)
}
