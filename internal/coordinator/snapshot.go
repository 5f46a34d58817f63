package coordinator

import (
	"time"

	"walletmon/internal/wallet"
)

// Snapshot is the immutable result of one refresh cycle. It is replaced as a
// whole at publish time; consumers always observe a complete, consistent
// value. The exposed transaction list is capped, TotalTransactions is not.
type Snapshot struct {
	TotalTransactions  int                `json:"total_transactions"`
	Transactions       []wallet.Record    `json:"transactions"`
	ActiveAccountCount int                `json:"account_count"`
	ActiveAccountIDs   []string           `json:"active_account_ids"`
	RequestsMade       int                `json:"requests_made"`
	Aggregates         map[string]float64 `json:"aggregates"`
	UpdatedAt          time.Time          `json:"updated_at"`
	LastError          string             `json:"last_error,omitempty"`
}

// clone returns a deep copy so callers can never alias the coordinator's
// internal state.
func (s Snapshot) clone() Snapshot {
	out := s
	if s.Transactions != nil {
		out.Transactions = make([]wallet.Record, len(s.Transactions))
		copy(out.Transactions, s.Transactions)
	}
	if s.ActiveAccountIDs != nil {
		out.ActiveAccountIDs = make([]string, len(s.ActiveAccountIDs))
		copy(out.ActiveAccountIDs, s.ActiveAccountIDs)
	}
	if s.Aggregates != nil {
		out.Aggregates = make(map[string]float64, len(s.Aggregates))
		for k, v := range s.Aggregates {
			out.Aggregates[k] = v
		}
	}
	return out
}
