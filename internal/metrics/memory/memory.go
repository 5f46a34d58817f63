// Package memory provides an in-memory metrics collector used in tests.
package memory

import (
	"sync"
	"time"
)

// Collector accumulates measurements in memory.
type Collector struct {
	mu sync.Mutex

	Refreshes     int
	Failures      int
	ReauthSignals int
	TotalRequests int
	LastDuration  time.Duration
	LastSnapshot  int
	LastAccounts  int
	SnapshotsSeen int
}

// New creates an empty in-memory collector.
func New() *Collector {
	return &Collector{}
}

func (c *Collector) ObserveRefresh(success bool, duration time.Duration, requests int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Refreshes++
	if !success {
		c.Failures++
	}
	c.TotalRequests += requests
	c.LastDuration = duration
}

func (c *Collector) ObserveSnapshot(transactions, activeAccounts int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SnapshotsSeen++
	c.LastSnapshot = transactions
	c.LastAccounts = activeAccounts
}

func (c *Collector) ObserveReauthSignal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ReauthSignals++
}

// Counts returns refresh and failure totals.
func (c *Collector) Counts() (refreshes, failures int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Refreshes, c.Failures
}
