package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings so logs stay queryable.
const (
	// Identity and context
	FieldPassID    = "pass_id"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Documents and positions
	FieldURI      = "uri"
	FieldLanguage = "language"
	FieldVersion  = "version"
	FieldLine     = "line"
	FieldColumn   = "column"

	// Types and icons
	FieldType     = "type"
	FieldChain    = "chain"
	FieldIconSize = "icon_size"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount      = "count"
	FieldBatchSize  = "batch_size"
	FieldTotalCount = "total_count"

	// Language server process
	FieldServer  = "server"
	FieldMethod  = "method"
	FieldAddress = "address"
)

type contextKey string

const (
	passIDKey    contextKey = "logger_pass_id"
	componentKey contextKey = "logger_component"
)

// WithPassID adds a collection pass ID to the context for logging
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, passIDKey, passID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Debugw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if passID, ok := ctx.Value(passIDKey).(string); ok && passID != "" {
		fields = append(fields, FieldPassID, passID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base with the fields carried by ctx attached.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	collector := collect.New(provider, "go", opts, logger.ComponentLogger("collect"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
