package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldDuration     = "duration_ms"
	FieldRequestsMade = "requests_made"
	FieldTransactions = "transactions"
	FieldAccounts     = "active_accounts"
	FieldWindowDays   = "window_days"
	FieldUpdatedAt    = "updated_at"
	FieldState        = "state"
	FieldInterval     = "interval"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentAPI         = "api"
	ComponentWallet      = "wallet"
	ComponentCoordinator = "coordinator"
	ComponentScheduler   = "scheduler"
	ComponentStorage     = "storage"
	ComponentEvents      = "events"
)
