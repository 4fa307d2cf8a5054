package log

import (
	"maps"
	"slices"
)

const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldReferer     = "referer"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldActivityID  = "activity_id"
	FieldCategory    = "category"
	FieldSubtype     = "subtype"
	FieldQuantity    = "quantity"
	FieldCO2         = "co2_kg"
	FieldSource      = "source"
	FieldChallengeID = "challenge_id"
	FieldExportRef   = "export_ref"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentActivity  = "activity"
	ComponentVoice     = "voice"
	ComponentChallenge = "challenge"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentTrace     = "trace"
	ComponentTemplate  = "template"
	ComponentSecurity  = "security"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpList     = "list"
	OpAppend   = "append"
	OpValidate = "validate"
	OpRender   = "render"
)

// LogFields accumulates attributes for one log record.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError is a no-op for a nil err.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

func (f LogFields) WithPath(path string) LogFields {
	f[FieldPath] = path
	return f
}

// WithHTTPRequest omits an empty query.
func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice returns key/value pairs sorted by key, for stable output.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, k, f[k])
	}
	return out
}
