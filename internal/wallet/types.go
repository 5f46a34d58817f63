package wallet

import "time"

// Record types as reported by the Wallet API.
const (
	RecordTypeExpense  = "expense"
	RecordTypeIncome   = "income"
	RecordTypeTransfer = "transfer"
)

type (
	// Account is a single Wallet account as returned by the accounts endpoint.
	Account struct {
		ID               string `json:"id"`
		Name             string `json:"name,omitempty"`
		Archived         bool   `json:"archived"`
		ExcludeFromStats bool   `json:"excludeFromStats"`
	}

	// Amount is a monetary value in a single currency.
	Amount struct {
		Value        float64 `json:"value"`
		CurrencyCode string  `json:"currencyCode"`
	}

	// Record is a single transaction record as returned by the records endpoint.
	Record struct {
		ID           string    `json:"id"`
		AccountID    string    `json:"accountId"`
		RecordType   string    `json:"recordType"`
		CategoryName string    `json:"categoryName,omitempty"`
		RecordDate   time.Time `json:"recordDate"`
		BaseAmount   Amount    `json:"baseAmount"`
	}
)

// Active reports whether the account takes part in statistics: it is neither
// archived nor explicitly excluded.
func (a Account) Active() bool {
	return !a.Archived && !a.ExcludeFromStats
}
