// Package observability provides per-request structured logging and
// in-process counters for the evaluation pipeline.
package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldBlockID is the field name for exercise block ID.
	LogFieldBlockID = "block_id"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
)

// RequestContext carries the identity of one submission through the
// background pipeline so every log line can be correlated.
type RequestContext struct {
	RequestID string
	UserID    int32
	Component string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, component string, userID int32) *RequestContext {
	return &RequestContext{
		RequestID: uuid.New().String(),
		UserID:    userID,
		Component: component,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// Info logs an info message with the request identity attached.
func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelInfo, msg, attrs)
}

// Debug logs a debug message with the request identity attached.
func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelDebug, msg, attrs)
}

// Warn logs a warning with the request identity attached.
func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelWarn, msg, attrs)
}

// Error logs an error with the request identity attached.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	r.log(slog.LevelError, msg, append(attrs, slog.String("error", err.Error())))
}

func (r *RequestContext) log(level slog.Level, msg string, attrs []slog.Attr) {
	combined := make([]slog.Attr, 0, 3+len(attrs))
	combined = append(combined,
		slog.String("request_id", r.RequestID),
		slog.Int64("user_id", int64(r.UserID)),
		slog.String("component", r.Component),
	)
	combined = append(combined, attrs...)
	r.Logger.LogAttrs(context.Background(), level, msg, combined...)
}
