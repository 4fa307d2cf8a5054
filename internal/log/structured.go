package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ActivityEvent identifies an appended activity record in log output.
type ActivityEvent struct {
	UserID   string
	ID       string
	Category string
	Subtype  string
	Quantity float64
	CO2      float64
	Source   string
}

func (e ActivityEvent) Fields() LogFields {
	f := NewFields().WithUser(e.UserID)
	f[FieldActivityID] = e.ID
	f[FieldCategory] = e.Category
	f[FieldSubtype] = e.Subtype
	f[FieldQuantity] = e.Quantity
	f[FieldCO2] = e.CO2
	if e.Source != "" {
		f[FieldSource] = e.Source
	}
	return f
}

// StructuredLogger emits the recurring log records with a fixed field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
		WithClientIP(clientIP)
	fields[FieldUserAgent] = r.Header.Get("User-Agent")
	if ref := r.Header.Get("Referer"); ref != "" {
		fields[FieldReferer] = ref
	}
	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx responses.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)
	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogActivityLogged(ctx context.Context, ev ActivityEvent) {
	sl.logger.InfoContext(ctx, "Activity logged", ev.Fields().WithOperation(OpAppend).ToSlice()...)
}

// LogError logs err under component, which replaces the logger's own.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
