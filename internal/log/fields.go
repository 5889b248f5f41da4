package log

import (
	"slices"

	"velam/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldKind       = "kind"
	FieldEntryID    = "entry_id"
	FieldPerson     = "person"
	FieldAmount     = "amount"
	FieldMonth      = "month"
	FieldKey        = "key"
	FieldBackend    = "backend"
	FieldEventID    = "event_id"
	FieldExchange   = "exchange"
	FieldQueue      = "queue"
	FieldSheet      = "sheet"
	FieldDurationMs = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpReturn   = "return"
	OpLoad     = "load"
	OpSave     = "save"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds an error category
func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry identifies a ledger entry
func (f LogFields) WithEntry(kind core.Kind, id int64) LogFields {
	f[FieldKind] = string(kind)
	f[FieldEntryID] = id
	return f
}

// WithAmount adds a person and amount pair
func (f LogFields) WithAmount(person string, amount core.Amount) LogFields {
	if person != "" {
		f[FieldPerson] = person
	}
	f[FieldAmount] = amount.String()
	return f
}

// ToSlice converts LogFields to a slice for slog, keys in sorted order
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
