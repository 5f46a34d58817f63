// Package prometheus exports refresh metrics to a Prometheus registry.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector backed by Prometheus.
type Collector struct {
	refreshes     *prometheus.CounterVec
	reauthSignals prometheus.Counter
	requests      prometheus.Counter
	cycleDuration prometheus.Histogram
	transactions  prometheus.Gauge
	accounts      prometheus.Gauge
}

// New creates a collector registering its metrics under the given namespace.
func New(namespace string) *Collector {
	return &Collector{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_cycles_total",
				Help:      "Total refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		reauthSignals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reauth_signals_total",
				Help:      "Total refresh cycles that demanded re-authentication",
			},
		),
		requests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_requests_total",
				Help:      "Total HTTP requests made against the Wallet API",
			},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Refresh cycle duration",
				Buckets:   prometheus.DefBuckets,
			},
		),
		transactions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_transactions",
				Help:      "Filtered transaction count in the published snapshot",
			},
		),
		accounts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_active_accounts",
				Help:      "Active account count in the published snapshot",
			},
		),
	}
}

// Register registers all metrics with the given registerer.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.refreshes,
		c.reauthSignals,
		c.requests,
		c.cycleDuration,
		c.transactions,
		c.accounts,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) ObserveRefresh(success bool, duration time.Duration, requests int) {
	outcome := "published"
	if !success {
		outcome = "failed"
	}
	c.refreshes.WithLabelValues(outcome).Inc()
	c.requests.Add(float64(requests))
	c.cycleDuration.Observe(duration.Seconds())
}

func (c *Collector) ObserveSnapshot(transactions, activeAccounts int) {
	c.transactions.Set(float64(transactions))
	c.accounts.Set(float64(activeAccounts))
}

func (c *Collector) ObserveReauthSignal() {
	c.reauthSignals.Inc()
}
