package coordinator

import (
	"math"
	"time"

	"walletmon/internal/wallet"
)

// Aggregate describes one derived numeric sensor: a predicate over the
// filtered transaction set plus a trailing sub-window, summed over base
// amounts. Aggregates are pure; computing one never mutates the record set.
type Aggregate struct {
	// Name identifies the aggregate in the snapshot and on the sensor API.
	Name string

	// WindowDays is the trailing lookback for this aggregate. The coordinator
	// fetches once per cycle using the longest window of all aggregates.
	WindowDays int

	// RecordType restricts the sum to one record type. Empty matches all.
	RecordType string

	// CurrencyCode restricts the sum to one base currency. Empty matches all.
	CurrencyCode string

	// Absolute sums absolute values irrespective of direction, for "total
	// movement" style aggregates.
	Absolute bool

	// Unit is the display unit reported on the sensor API.
	Unit string
}

// DefaultAggregates returns the stock sensor set: expense spend in PLN over
// the last 7 days and net movement in PLN over the last 30 days.
func DefaultAggregates() []Aggregate {
	return []Aggregate{
		{
			Name:         "spent_pln_7d",
			WindowDays:   7,
			RecordType:   wallet.RecordTypeExpense,
			CurrencyCode: "PLN",
			Absolute:     true,
			Unit:         "PLN",
		},
		{
			Name:         "net_pln_30d",
			WindowDays:   30,
			CurrencyCode: "PLN",
			Unit:         "PLN",
		},
	}
}

// Compute sums the matching records dated within the aggregate's trailing
// window ending at now. The result is rounded to two decimal places.
func (a Aggregate) Compute(records []wallet.Record, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -a.WindowDays)

	var total float64
	for _, rec := range records {
		if rec.RecordDate.Before(cutoff) {
			continue
		}
		if a.RecordType != "" && rec.RecordType != a.RecordType {
			continue
		}
		if a.CurrencyCode != "" && rec.BaseAmount.CurrencyCode != a.CurrencyCode {
			continue
		}

		value := rec.BaseAmount.Value
		if a.Absolute {
			value = math.Abs(value)
		}
		total += value
	}

	return math.Round(total*100) / 100
}

// maxWindowDays returns the longest lookback needed by any aggregate, so one
// fetch covers every configured sub-window.
func maxWindowDays(aggregates []Aggregate) int {
	days := 0
	for _, a := range aggregates {
		if a.WindowDays > days {
			days = a.WindowDays
		}
	}
	return days
}
