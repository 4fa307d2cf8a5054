package http

import (
	"errors"
	"net/http"
	"strings"

	"ecotrack/internal/activitylog"
	"ecotrack/internal/auth"
	"ecotrack/internal/core"
	"ecotrack/internal/log"
)

// sanitizeInput strips control characters (except tab and newlines) and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// userID resolves the caller set by the auth middleware.
func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}

var validationErrors = []error{
	core.ErrUnknownCategory,
	core.ErrMissingSubtype,
	core.ErrMissingQuantity,
	core.ErrInvalidQuantity,
	core.ErrInvalidGoal,
	core.ErrEmptyUserID,
	core.ErrUsernameTooLong,
	core.ErrEmptyCompanyName,
	core.ErrEmptyContactName,
	core.ErrInvalidEmail,
	core.ErrEmptyMessage,
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorResponse maps service errors to status codes: validation 422,
// conflicts 409, missing challenges 404, anything else 500. The category is
// used to pick the activity form notice.
func errorResponse(r *http.Request, err error, category core.Category, op string) *Reply {
	switch {
	case isValidation(err):
		msg := err.Error()
		if category != "" || errors.Is(err, core.ErrUnknownCategory) || errors.Is(err, core.ErrInvalidGoal) {
			msg = core.ValidationMessage(category, err)
		}
		return UnprocessableEntityError(msg)
	case errors.Is(err, core.ErrChallengeAlreadyStarted),
		errors.Is(err, core.ErrChallengeCompleted),
		errors.Is(err, core.ErrChallengeNotStarted):
		return ConflictError(err.Error())
	case errors.Is(err, core.ErrChallengeNotFound):
		return NotFoundError(err.Error())
	}

	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, log.ComponentHTTP, op,
		log.NewFields().WithUser(userID(r)).WithPath(r.URL.Path))
	if errors.Is(err, activitylog.ErrPersistence) {
		return InternalServerError("Storage is unavailable, please try again")
	}
	return InternalServerError("Something went wrong, please try again")
}
