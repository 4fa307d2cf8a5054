package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecotrack/internal/activitylog"
	"ecotrack/internal/core"
	"ecotrack/internal/log"
	"ecotrack/internal/observability"
	"ecotrack/internal/ports"
	"ecotrack/internal/voice"
)

// ActivityService orchestrates logging activities across the per-user logs,
// metrics and the optional event publisher.
type ActivityService struct {
	logs      *activitylog.Registry
	goals     *activitylog.GoalStore
	publisher ports.EventPublisher
	interp    *voice.Interpreter
	logger    *log.Logger
	slog      *log.StructuredLogger
	now       func() time.Time
}

// LogResult is the outcome of a successful validation. Saved is false when
// the record was kept in memory but could not be persisted.
type LogResult struct {
	Record      core.ActivityRecord `json:"activity"`
	Description string              `json:"description"`
	Tip         string              `json:"tip"`
	Saved       bool                `json:"saved"`
}

// VoiceResult is returned for each transcript fragment. Partial fragments
// only carry the preview.
type VoiceResult struct {
	Preview string         `json:"preview,omitempty"`
	Outcome *voice.Outcome `json:"outcome,omitempty"`
	Logged  *LogResult     `json:"logged,omitempty"`
}

// ErrDefaultGoal accompanies a dashboard built with the fallback goal because
// the stored one could not be read.
var ErrDefaultGoal = errors.New("weekly goal unavailable, using the default")

// Dashboard bundles the summary with the current goal.
type Dashboard struct {
	core.Summary
	Tip string `json:"tip,omitempty"`
}

func NewActivityService(logs *activitylog.Registry, goals *activitylog.GoalStore, publisher ports.EventPublisher, logger *log.Logger) *ActivityService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentActivity)
	return &ActivityService{
		logs:      logs,
		goals:     goals,
		publisher: publisher,
		interp:    voice.NewInterpreter(),
		logger:    logger,
		slog:      log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// WithClock overrides the time source for timestamps and aggregation.
func (s *ActivityService) WithClock(now func() time.Time) *ActivityService {
	s.now = now
	return s
}

// LogActivity validates a form intent, estimates its CO2 and appends it.
func (s *ActivityService) LogActivity(ctx context.Context, userID string, in core.ActivityIntent) (LogResult, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return LogResult{}, fmt.Errorf("validate activity: %w", err)
	}
	if in.Category == core.Food && in.QuantityOmitted {
		in.Quantity = 1
	}
	if in.Category == core.Transport && in.Secondary == "" {
		in.Secondary = core.DefaultFuel(in.Subtype)
	}
	co2 := core.Estimate(in.Category, in.Subtype, in.Quantity, in.Secondary)
	return s.append(ctx, userID, in, co2, core.SourceForm)
}

// HandleTranscript interprets a transcript fragment. Partial fragments are
// echoed back as a preview; final fragments are interpreted and, when a rule
// matches, logged.
func (s *ActivityService) HandleTranscript(ctx context.Context, userID, transcript string, final bool) (VoiceResult, error) {
	if !final {
		return VoiceResult{Preview: transcript}, nil
	}
	out := s.interp.Interpret(transcript)
	if !out.Matched {
		observability.RecordVoiceCommand("none")
		return VoiceResult{Outcome: &out}, nil
	}
	observability.RecordVoiceCommand(string(out.Intent.Category))

	res, err := s.append(ctx, userID, out.Intent, out.CO2, core.SourceVoice)
	if err != nil && !errors.Is(err, activitylog.ErrNotSaved) {
		return VoiceResult{Outcome: &out}, err
	}
	return VoiceResult{Outcome: &out, Logged: &res}, err
}

// VoiceRecorder adapts the service to a voice session for userID.
func (s *ActivityService) VoiceRecorder(userID string) voice.RecordFunc {
	return func(ctx context.Context, out voice.Outcome) error {
		observability.RecordVoiceCommand(string(out.Intent.Category))
		_, err := s.append(ctx, userID, out.Intent, out.CO2, core.SourceVoice)
		return err
	}
}

func (s *ActivityService) append(ctx context.Context, userID string, in core.ActivityIntent, co2 float64, source core.Source) (LogResult, error) {
	l, err := s.logs.For(ctx, userID)
	if err != nil {
		return LogResult{}, fmt.Errorf("open activity log: %w", err)
	}

	rec, err := l.Append(ctx, core.ActivityRecord{
		Category:    in.Category,
		Subtype:     in.Subtype,
		Secondary:   in.Secondary,
		Quantity:    in.Quantity,
		ComputedCO2: co2,
		Source:      source,
		Timestamp:   s.now(),
	})
	res := LogResult{Record: rec, Description: core.Describe(rec), Tip: core.EcoTip(rec), Saved: err == nil}

	ev := log.ActivityEvent{
		UserID: userID, ID: rec.ID, Category: string(rec.Category), Subtype: rec.Subtype,
		Quantity: rec.Quantity, CO2: rec.ComputedCO2, Source: string(source),
	}
	switch {
	case errors.Is(err, activitylog.ErrNotSaved):
		observability.RecordPersistenceFailure()
		s.slog.LogError(ctx, "Activity kept in memory only", err, log.ComponentActivity, log.OpAppend, ev.Fields())
	case err != nil:
		return LogResult{}, fmt.Errorf("append activity: %w", err)
	default:
		s.slog.LogActivityLogged(ctx, ev)
	}

	observability.RecordActivityLogged(string(rec.Category), string(source), rec.ComputedCO2)
	s.publishActivity(ctx, userID, rec)
	return res, err
}

func (s *ActivityService) publishActivity(ctx context.Context, userID string, rec core.ActivityRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishActivityLogged(ctx, userID, rec); err != nil {
		// the record is stored locally; export can be replayed later
		s.logger.ErrorContext(ctx, "Failed to publish activity logged message",
			log.FieldActivityID, rec.ID, log.FieldError, err)
	}
}

// List returns the user's records in insertion order.
func (s *ActivityService) List(ctx context.Context, userID string) ([]core.ActivityRecord, error) {
	l, err := s.logs.For(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	return l.Records(), nil
}

// Dashboard aggregates the log at the current instant. The weekly progress
// is the week-to-date total of the log. When the goal cannot be read the
// summary is still built, against the fallback goal, and the error wraps
// ErrDefaultGoal.
func (s *ActivityService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	records, err := s.List(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	goal, goalErr := s.goals.Load(ctx, userID)
	if goalErr != nil {
		s.logger.WarnContext(ctx, "Weekly goal unreadable, using the default",
			log.FieldUserID, userID, log.FieldError, goalErr)
		goalErr = fmt.Errorf("%w: %w", ErrDefaultGoal, goalErr)
	}
	now := s.now()
	d := Dashboard{Summary: core.Summarize(records, now, core.WeekTotal(records, now), goal)}
	if n := len(records); n > 0 {
		d.Tip = core.EcoTip(records[n-1])
	}
	return d, goalErr
}

func (s *ActivityService) Goal(ctx context.Context, userID string) (float64, error) {
	return s.goals.Load(ctx, userID)
}

func (s *ActivityService) SetGoal(ctx context.Context, userID string, goal float64) error {
	if err := s.goals.Save(ctx, userID, goal); err != nil {
		return fmt.Errorf("save weekly goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Weekly goal updated", log.FieldUserID, userID, "goal", goal)
	return nil
}

// Reset clears the user's activity log.
func (s *ActivityService) Reset(ctx context.Context, userID string) error {
	l, err := s.logs.For(ctx, userID)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	if err := l.Reset(ctx); err != nil {
		return fmt.Errorf("reset activity log: %w", err)
	}
	s.logger.InfoContext(ctx, "Activity log reset", log.FieldUserID, userID)
	return nil
}
