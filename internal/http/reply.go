package http

// Reply builds JSON responses. Events for the htmx dashboard travel in the Events for the htmx dashboard travel in the
// HX-Trigger header so the page can refresh panels and show notices.

import (
	"encoding/json"
	"net/http"
	"time"
)

// Trigger names understood by the dashboard page.
const (
	EventActivityLogged   = "activity:logged"
	EventDashboardRefresh = "dashboard:refresh"
	EventGoalUpdated      = "goal:updated"
	EventChallengeUpdated = "challenge:updated"
	EventLeaderboard      = "leaderboard:refresh"
	EventFormReset        = "form:reset"
	EventNotification     = "show-notification"
)

// Reply builds a JSON response. Events for the htmx dashboard travel in the
// HX-Trigger header so the page can refresh panels and show notices.
type Reply struct {
	triggers   map[string]any
	statusCode int
	body       any
	header     http.Header
}

// NewReply starts a 200 response.
func NewReply() *Reply {
	return &Reply{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		header:     make(http.Header),
	}
}

func (b *Reply) Status(code int) *Reply {
	b.statusCode = code
	return b
}

func (b *Reply) Trigger(name string, data any) *Reply {
	b.triggers[name] = data
	return b
}

// TriggerActivityLogged announces a new record and asks the dashboard to
// reload its summary.
func (b *Reply) TriggerActivityLogged(id string, co2 float64) *Reply {
	b.Trigger(EventActivityLogged, map[string]any{"id": id, "co2": co2})
	return b.TriggerDashboardRefresh()
}

func (b *Reply) TriggerDashboardRefresh() *Reply {
	return b.Trigger(EventDashboardRefresh, struct{}{})
}

func (b *Reply) TriggerGoalUpdated(goal float64) *Reply {
	b.Trigger(EventGoalUpdated, map[string]float64{"goal": goal})
	return b.TriggerDashboardRefresh()
}

func (b *Reply) TriggerChallengeUpdated(id, status string) *Reply {
	return b.Trigger(EventChallengeUpdated, map[string]string{"id": id, "status": status})
}

func (b *Reply) TriggerLeaderboardRefresh() *Reply {
	return b.Trigger(EventLeaderboard, struct{}{})
}

func (b *Reply) TriggerFormReset() *Reply {
	return b.Trigger(EventFormReset, struct{}{})
}

type notificationLevel string

const (
	levelSuccess notificationLevel = "success"
	levelInfo    notificationLevel = "info"
	levelWarning notificationLevel = "warning"
	levelError   notificationLevel = "error"
)

// notification is the payload of the show-notification event.
type notification struct {
	Type     notificationLevel `json:"type"`
	Message  string            `json:"message"`
	Duration int               `json:"duration"` // ms
}

func (b *Reply) notify(level notificationLevel, message string, d time.Duration) *Reply {
	return b.Trigger(EventNotification, notification{Type: level, Message: message, Duration: int(d.Milliseconds())})
}

func (b *Reply) TriggerSuccessNotification(message string) *Reply {
	return b.notify(levelSuccess, message, 3*time.Second)
}

func (b *Reply) TriggerInfoNotification(message string) *Reply {
	return b.notify(levelInfo, message, 5*time.Second)
}

func (b *Reply) TriggerWarningNotification(message string) *Reply {
	return b.notify(levelWarning, message, 5*time.Second)
}

func (b *Reply) TriggerErrorNotification(message string) *Reply {
	return b.notify(levelError, message, 5*time.Second)
}

func (b *Reply) Header(name, value string) *Reply {
	b.header.Set(name, value)
	return b
}

// JSON sets the value encoded as the response body.
func (b *Reply) JSON(v any) *Reply {
	b.body = v
	return b
}

func (b *Reply) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.triggers) > 0 {
		if events, err := json.Marshal(b.triggers); err == nil {
			h.Set("HX-Trigger", string(events))
		}
	}
	if b.body != nil {
		h.Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse pairs the error body with an error notification.
func ErrorResponse(statusCode int, message string) *Reply {
	return NewReply().
		Status(statusCode).
		TriggerErrorNotification(message).
		JSON(errorBody{Error: message})
}

func BadRequestError(message string) *Reply {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *Reply {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func ConflictError(message string) *Reply {
	return ErrorResponse(http.StatusConflict, message)
}

func NotFoundError(message string) *Reply {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *Reply {
	return ErrorResponse(http.StatusInternalServerError, message)
}
