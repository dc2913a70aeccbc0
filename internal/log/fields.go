package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldTransactionID = "transaction_id"
	FieldLinkedID      = "linked_id"
	FieldValueCents    = "value_cents"
	FieldBankID        = "bank_id"
	FieldWalletID      = "wallet_id"
	FieldRegistryKind  = "registry_kind"
	FieldStamp         = "stamp"
)

// Standard component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentMirror    = "mirror"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentCSV       = "csv"
	ComponentRateLimit = "rate_limit"
)

// Standard operation names.
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpRefresh = "refresh"
	OpImport  = "import"
	OpExport  = "export"
	OpMirror  = "mirror"
)
