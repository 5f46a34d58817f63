// Package metrics defines the collector interface for refresh observability.
// Implementations live in subpackages; the no-op collector is the default.
package metrics

import "time"

// Collector receives measurements from the coordinator and scheduler.
type Collector interface {
	// ObserveRefresh records the outcome of one refresh cycle: whether it
	// published, how long it took, and how many remote requests it made.
	ObserveRefresh(success bool, duration time.Duration, requests int)

	// ObserveSnapshot records the size of a freshly published snapshot.
	ObserveSnapshot(transactions, activeAccounts int)

	// ObserveReauthSignal records that a cycle demanded re-authentication.
	ObserveReauthSignal()
}

// NoOpCollector discards all measurements.
type NoOpCollector struct{}

func (NoOpCollector) ObserveRefresh(success bool, duration time.Duration, requests int) {}

func (NoOpCollector) ObserveSnapshot(transactions, activeAccounts int) {}

func (NoOpCollector) ObserveReauthSignal() {}
