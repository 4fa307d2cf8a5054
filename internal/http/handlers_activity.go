package http

import (
	"errors"
	"net/http"

	"ecotrack/internal/activitylog"
	"ecotrack/internal/core"
	"ecotrack/internal/log"
	"ecotrack/internal/services"
)

// activityResponse is the body of a logged activity. Notice is set when the
// record could not be persisted.
type activityResponse struct {
	Activity    core.ActivityRecord `json:"activity"`
	Description string              `json:"description"`
	Tip         string              `json:"tip"`
	Saved       bool                `json:"saved"`
	Notice      string              `json:"notice,omitempty"`
}

const (
	notSavedNotice    = "Activity logged but could not be saved; it will be lost on restart"
	defaultGoalNotice = "Weekly goal could not be loaded, showing the default"
)

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Activities.List(r.Context(), userID(r))
	if err != nil {
		errorResponse(r, err, "", log.OpList).Write(w)
		return
	}
	if records == nil {
		records = []core.ActivityRecord{}
	}
	NewReply().JSON(map[string]any{"activities": records}).Write(w)
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	intent, err := ParseActivityIntent(p)
	if err != nil {
		errorResponse(r, err, intent.Normalize().Category, log.OpCreate).Write(w)
		return
	}

	res, err := s.deps.Activities.LogActivity(r.Context(), userID(r), intent)
	switch {
	case errors.Is(err, activitylog.ErrNotSaved):
		// The record is in the in-memory log; the user gets a warning.
		NewReply().
			Status(http.StatusAccepted).
			TriggerActivityLogged(res.Record.ID, res.Record.ComputedCO2).
			TriggerWarningNotification(notSavedNotice).
			JSON(activityResponse{Activity: res.Record, Description: res.Description, Tip: res.Tip, Saved: false, Notice: notSavedNotice}).
			Write(w)
		return
	case err != nil:
		errorResponse(r, err, intent.Normalize().Category, log.OpCreate).Write(w)
		return
	}

	NewReply().
		Status(http.StatusCreated).
		TriggerActivityLogged(res.Record.ID, res.Record.ComputedCO2).
		TriggerFormReset().
		TriggerSuccessNotification(res.Description).
		JSON(activityResponse{Activity: res.Record, Description: res.Description, Tip: res.Tip, Saved: true}).
		Write(w)
}

func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	NewReply().
		Header("Cache-Control", "public, max-age=3600").
		JSON(core.Factors()).
		Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Activities.Dashboard(r.Context(), userID(r))
	if err != nil && !errors.Is(err, services.ErrDefaultGoal) {
		errorResponse(r, err, "", log.OpRead).Write(w)
		return
	}
	b := NewReply().JSON(d)
	if err != nil {
		b.TriggerWarningNotification(defaultGoalNotice)
	}
	b.Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.deps.Activities.Goal(r.Context(), userID(r))
	if err != nil && !errors.Is(err, activitylog.ErrPersistence) {
		errorResponse(r, err, "", log.OpRead).Write(w)
		return
	}
	NewReply().JSON(map[string]float64{"goal": goal}).Write(w)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	goal, err := ParseGoal(p)
	if err != nil {
		errorResponse(r, err, "", log.OpValidate).Write(w)
		return
	}
	if err := s.deps.Activities.SetGoal(r.Context(), userID(r), goal); err != nil {
		errorResponse(r, err, "", log.OpUpdate).Write(w)
		return
	}
	NewReply().
		TriggerGoalUpdated(goal).
		TriggerSuccessNotification("Weekly goal updated").
		JSON(map[string]float64{"goal": goal}).
		Write(w)
}

// handleVoice accepts transcript fragments. Partial fragments are echoed as a
// preview and never logged.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	req, err := ParseVoiceRequest(p)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	res, err := s.deps.Activities.HandleTranscript(r.Context(), userID(r), req.Transcript, req.Final)
	if err != nil && !errors.Is(err, activitylog.ErrNotSaved) {
		errorResponse(r, err, "", log.OpCreate).Write(w)
		return
	}

	b := NewReply().JSON(res)
	switch {
	case res.Logged != nil && !res.Logged.Saved:
		b.TriggerActivityLogged(res.Logged.Record.ID, res.Logged.Record.ComputedCO2).
			TriggerWarningNotification(notSavedNotice)
	case res.Logged != nil:
		b.TriggerActivityLogged(res.Logged.Record.ID, res.Logged.Record.ComputedCO2)
	case res.Outcome != nil:
		b.TriggerInfoNotification(res.Outcome.Response)
	}
	b.Write(w)
}
