package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldOperationID is the field name for the operation ID.
	LogFieldOperationID = "operation_id"
	// LogFieldProjectID is the field name for the project ID.
	LogFieldProjectID = "project_id"
	// LogFieldBackendID is the field name for the backend ID.
	LogFieldBackendID = "backend_id"
	// LogFieldOperation is the field name for the operation (suggest, train, learn).
	LogFieldOperation = "operation"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldTextLen is the field name for input text length.
	LogFieldTextLen = "text_length"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldStep is the field name for a training protocol step.
	LogFieldStep = "step"
	// LogFieldAttempt is the field name for a poll attempt counter.
	LogFieldAttempt = "attempt"
)

// BackendLogger returns a logger tagged with the project and backend.
func BackendLogger(logger *slog.Logger, projectID, backendID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(
		slog.String(LogFieldProjectID, projectID),
		slog.String(LogFieldBackendID, backendID),
	)
}

// OperationContext represents one suggest/train/learn call with structured logging.
type OperationContext struct {
	OperationID string
	ProjectID   string
	BackendID   string
	Operation   string
	StartTime   time.Time
	Logger      *slog.Logger
}

// NewOperationContext creates a new operation context with a generated ID.
func NewOperationContext(logger *slog.Logger, operation, projectID, backendID string) *OperationContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationContext{
		OperationID: generateOperationID(),
		ProjectID:   projectID,
		BackendID:   backendID,
		Operation:   operation,
		StartTime:   time.Now(),
		Logger:      logger,
	}
}

// Info logs an info message.
func (o *OperationContext) Info(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, o.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (o *OperationContext) Debug(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, o.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (o *OperationContext) Warn(msg string, attrs ...slog.Attr) {
	o.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, o.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (o *OperationContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	o.Logger.LogAttrs(context.Background(), slog.LevelError, msg, o.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the operation started.
func (o *OperationContext) Duration() time.Duration {
	return time.Since(o.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (o *OperationContext) DurationMs() int64 {
	return o.Duration().Milliseconds()
}

func (o *OperationContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldOperationID, o.OperationID),
		slog.String(LogFieldOperation, o.Operation),
		slog.String(LogFieldProjectID, o.ProjectID),
		slog.String(LogFieldBackendID, o.BackendID),
	}
}

func (o *OperationContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	base := o.baseAttrs()
	return append(base, attrs...)
}

func generateOperationID() string {
	return uuid.New().String()
}

type ctxKey struct{}

// WithOperationContext adds the operation context to the context.
func WithOperationContext(ctx context.Context, op *OperationContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, op)
}

// FromContext extracts the operation context from the context.
func FromContext(ctx context.Context) (*OperationContext, bool) {
	op, ok := ctx.Value(ctxKey{}).(*OperationContext)
	return op, ok
}
