// Package coordinator implements the refresh cycle: it orchestrates the
// Wallet API client, filters and aggregates the fetched records, and owns the
// published snapshot consumed by the sensor surface.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"walletmon/internal/metrics"
	"walletmon/internal/wallet"
)

// DefaultMaxExposedTransactions caps the transaction list carried inside a
// snapshot. The total count is tracked separately and is never capped.
const DefaultMaxExposedTransactions = 1000

// ErrReauthRequired signals that the credential was rejected and must be
// replaced through the host's re-authentication flow before the next cycle
// can succeed. It is never retried internally.
var ErrReauthRequired = errors.New("wallet credential rejected, reauthentication required")

// State is the phase of the most recent refresh cycle.
type State int

const (
	StateIdle State = iota
	StateFetchingAccounts
	StateFetchingRecords
	StateAggregating
	StatePublished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingAccounts:
		return "fetching_accounts"
	case StateFetchingRecords:
		return "fetching_records"
	case StateAggregating:
		return "aggregating"
	case StatePublished:
		return "published"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client is the slice of the Wallet API the coordinator needs. The int
// results report HTTP requests made, summed into the snapshot.
type Client interface {
	ListAccounts(ctx context.Context) ([]wallet.Account, int, error)
	ListRecords(ctx context.Context, since, until time.Time) ([]wallet.Record, int, error)
}

// Config holds coordinator configuration.
type Config struct {
	// Aggregates to derive each cycle. Defaults to DefaultAggregates.
	Aggregates []Aggregate

	// ExcludedCategories are category names whose records are dropped before
	// counting and aggregating. Matching is exact.
	ExcludedCategories []string

	// MaxExposedTransactions caps the snapshot's transaction list. Defaults
	// to DefaultMaxExposedTransactions.
	MaxExposedTransactions int

	// WindowDays overrides the fetch window. Zero derives it from the
	// longest aggregate lookback.
	WindowDays int
}

// Coordinator runs refresh cycles and owns the published snapshot. The host
// scheduler guarantees non-overlapping invocations; a concurrent Refresh call
// during a cycle returns the last published snapshot without starting a new
// one.
type Coordinator struct {
	client    Client
	collector metrics.Collector
	now       func() time.Time

	aggregates []Aggregate
	excluded   map[string]struct{}
	maxExposed int
	windowDays int

	mu        sync.Mutex
	busy      bool
	state     State
	snapshot  Snapshot
	published bool
}

// New creates a coordinator. A nil collector disables metrics.
func New(client Client, cfg Config, collector metrics.Collector) *Coordinator {
	if cfg.Aggregates == nil {
		cfg.Aggregates = DefaultAggregates()
	}
	if cfg.MaxExposedTransactions <= 0 {
		cfg.MaxExposedTransactions = DefaultMaxExposedTransactions
	}
	windowDays := cfg.WindowDays
	if derived := maxWindowDays(cfg.Aggregates); derived > windowDays {
		windowDays = derived
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	excluded := make(map[string]struct{}, len(cfg.ExcludedCategories))
	for _, name := range cfg.ExcludedCategories {
		excluded[name] = struct{}{}
	}

	return &Coordinator{
		client:     client,
		collector:  collector,
		now:        time.Now,
		aggregates: cfg.Aggregates,
		excluded:   excluded,
		maxExposed: cfg.MaxExposedTransactions,
		windowDays: windowDays,
		state:      StateIdle,
	}
}

// WindowDays returns the effective trailing fetch window in days.
func (c *Coordinator) WindowDays() int {
	return c.windowDays
}

// Aggregates returns the configured aggregate definitions.
func (c *Coordinator) Aggregates() []Aggregate {
	out := make([]Aggregate, len(c.aggregates))
	copy(out, c.aggregates)
	return out
}

// State returns the phase of the most recent cycle.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current snapshot. The second return value is
// false until the first cycle has published (or a snapshot was restored).
func (c *Coordinator) Snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.clone(), c.published
}

// Restore seeds the published snapshot, typically from the snapshot store at
// startup, so sensors have data before the first live cycle completes.
func (c *Coordinator) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.published {
		return
	}
	c.snapshot = snap.clone()
	c.published = true
}

// Refresh runs one cycle end to end and returns the newly published snapshot.
// On failure the previous snapshot is retained with only its last error
// updated, and the error is returned; auth failures additionally match
// ErrReauthRequired.
func (c *Coordinator) Refresh(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.busy {
		snap := c.snapshot.clone()
		c.mu.Unlock()
		slog.WarnContext(ctx, "Refresh requested while a cycle is in flight, returning last snapshot")
		return snap, nil
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	started := c.now()
	snap, requests, err := c.runCycle(ctx, started)
	c.collector.ObserveRefresh(err == nil, c.now().Sub(started), requests)
	return snap, err
}

// runCycle reports the number of HTTP requests made, even when the cycle
// fails partway.
func (c *Coordinator) runCycle(ctx context.Context, now time.Time) (Snapshot, int, error) {
	since := now.AddDate(0, 0, -c.windowDays)

	c.setState(StateFetchingAccounts)
	accounts, accountRequests, err := c.client.ListAccounts(ctx)
	if err != nil {
		return c.fail(ctx, accountRequests, fmt.Errorf("fetch accounts: %w", err))
	}

	var activeIDs []string
	activeSet := make(map[string]struct{})
	for _, acc := range accounts {
		if !acc.Active() {
			continue
		}
		activeIDs = append(activeIDs, acc.ID)
		activeSet[acc.ID] = struct{}{}
	}

	c.setState(StateFetchingRecords)
	records, recordRequests, err := c.client.ListRecords(ctx, since, now)
	if err != nil {
		return c.fail(ctx, accountRequests+recordRequests, fmt.Errorf("fetch records: %w", err))
	}

	c.setState(StateAggregating)
	filtered := c.filterRecords(records, activeSet)

	aggregates := make(map[string]float64, len(c.aggregates))
	for _, agg := range c.aggregates {
		aggregates[agg.Name] = agg.Compute(filtered, now)
	}

	// Newest first, record ID as tiebreaker so identical remote data always
	// truncates identically.
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].RecordDate.Equal(filtered[j].RecordDate) {
			return filtered[i].RecordDate.After(filtered[j].RecordDate)
		}
		return filtered[i].ID < filtered[j].ID
	})

	exposed := filtered
	if len(exposed) > c.maxExposed {
		exposed = exposed[:c.maxExposed]
	}

	snap := Snapshot{
		TotalTransactions:  len(filtered),
		Transactions:       exposed,
		ActiveAccountCount: len(activeIDs),
		ActiveAccountIDs:   activeIDs,
		RequestsMade:       accountRequests + recordRequests,
		Aggregates:         aggregates,
		UpdatedAt:          now.UTC(),
	}

	c.mu.Lock()
	c.snapshot = snap
	c.published = true
	c.state = StatePublished
	c.mu.Unlock()

	c.collector.ObserveSnapshot(snap.TotalTransactions, snap.ActiveAccountCount)

	slog.InfoContext(ctx, "Refresh cycle published",
		"transactions", snap.TotalTransactions,
		"active_accounts", snap.ActiveAccountCount,
		"requests_made", snap.RequestsMade,
		"window_days", c.windowDays)

	return snap.clone(), snap.RequestsMade, nil
}

// fail records the error on the retained snapshot and ends the cycle. Nothing
// fetched so far is published; requests counts what was spent before the
// failure.
func (c *Coordinator) fail(ctx context.Context, requests int, err error) (Snapshot, int, error) {
	c.mu.Lock()
	c.snapshot.LastError = err.Error()
	c.state = StateFailed
	snap := c.snapshot.clone()
	c.mu.Unlock()

	if wallet.IsAuthError(err) {
		slog.ErrorContext(ctx, "Refresh cycle failed, credential rejected", "error", err)
		return snap, requests, errors.Join(ErrReauthRequired, err)
	}

	slog.ErrorContext(ctx, "Refresh cycle failed", "error", err)
	return snap, requests, err
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// filterRecords drops records owned by inactive accounts and records whose
// category is excluded.
func (c *Coordinator) filterRecords(records []wallet.Record, activeSet map[string]struct{}) []wallet.Record {
	filtered := make([]wallet.Record, 0, len(records))
	for _, rec := range records {
		if _, ok := activeSet[rec.AccountID]; !ok {
			continue
		}
		if _, ok := c.excluded[rec.CategoryName]; ok {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
