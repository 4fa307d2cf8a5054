package voice

import (
	"context"
	"errors"
	"sync"

	"ecotrack/internal/core"
	"ecotrack/internal/log"
)

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// ErrUnsupported is returned by Toggle when no recognizer is available.
var ErrUnsupported = errors.New("voice recognition not supported")

// Notice is a user-visible message raised by the session.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

var (
	NoticeRecognitionError = Notice{Title: "Voice Recognition Error", Description: "Could not understand speech. Please try again.", Destructive: true}
	NoticeUnsupported      = Notice{Title: "Voice Recognition Not Supported", Description: "Your browser doesn't support speech recognition.", Destructive: true}
)

// NoticeActivityLogged confirms that a spoken activity was recorded.
func NoticeActivityLogged(c core.Category) Notice {
	return Notice{Title: "Activity Logged!", Description: string(c) + " activity added to your tracker."}
}

// NoticeNotSaved reports a persistence failure for a spoken activity.
func NoticeNotSaved() Notice {
	return Notice{Title: "Activity Not Saved", Description: "Your activity could not be saved. Please try again.", Destructive: true}
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// RecordFunc persists the activity of a matched outcome.
type RecordFunc func(ctx context.Context, out Outcome) error

type Option func(*Session)

func WithRecorder(fn RecordFunc) Option     { return func(s *Session) { s.record = fn } }
func WithNotifier(n Notifier) Option        { return func(s *Session) { s.notifier = n } }
func WithLogger(l *log.Logger) Option       { return func(s *Session) { s.logger = l } }
func WithInterpreter(i *Interpreter) Option { return func(s *Session) { s.interp = i } }

// Session is the Idle/Listening state machine of the voice assistant.
// Transcripts are interpreted only when final; partial ones update the
// preview. Listening ends on Stop, on a recognition error or when the
// recognizer signals the end of input.
type Session struct {
	rec      Recognizer
	synth    Synthesizer
	interp   *Interpreter
	record   RecordFunc
	notifier Notifier
	logger   *log.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	done     chan struct{}
	preview  string
	speaking bool
	outcomes chan Outcome
}

// NewSession builds a session. rec may be nil, in which case Toggle reports
// ErrUnsupported; synth may be nil to disable spoken responses.
func NewSession(rec Recognizer, synth Synthesizer, opts ...Option) *Session {
	s := &Session{
		rec:      rec,
		synth:    synth,
		interp:   NewInterpreter(),
		notifier: NotifierFunc(func(context.Context, Notice) {}),
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentVoice),
		outcomes: make(chan Outcome, 16),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Preview returns the latest partial transcript of the running session.
func (s *Session) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Speaking reports whether a response is being spoken.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Outcomes delivers every interpreted final transcript. Outcomes are dropped
// when the buffer is full.
func (s *Session) Outcomes() <-chan Outcome { return s.outcomes }

// Toggle starts listening when idle and stops when listening.
func (s *Session) Toggle(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Listening {
		s.mu.Unlock()
		s.Stop()
		return nil
	}
	s.mu.Unlock()

	if s.rec == nil {
		s.notifier.Notify(ctx, NoticeUnsupported)
		return ErrUnsupported
	}
	events, err := s.rec.Start(ctx, DefaultRecognitionOptions)
	if err != nil {
		s.notifier.Notify(ctx, NoticeRecognitionError)
		return err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = Listening
	s.preview = ""
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.listen(ctx, gen, events)
	return nil
}

// Stop ends listening. It is a no-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != Listening {
		s.mu.Unlock()
		return
	}
	s.toIdleLocked()
	s.mu.Unlock()
	s.rec.Stop()
}

// StopSpeaking cancels the response being spoken.
func (s *Session) StopSpeaking() {
	if s.synth != nil {
		s.synth.Cancel()
	}
	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
}

// Wait blocks until the current listening period ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) listen(ctx context.Context, gen uint64, events <-chan Event) {
	defer s.endListening(gen)
	for ev := range events {
		switch ev.Kind {
		case EventResult:
			if !s.current(gen) {
				continue
			}
			s.mu.Lock()
			s.preview = ev.Text
			s.mu.Unlock()
			if ev.Final {
				s.process(ctx, ev.Text)
			}
		case EventError:
			if s.current(gen) {
				s.logger.WarnContext(ctx, "Speech recognition error", log.FieldError, ev.Err)
				s.notifier.Notify(ctx, NoticeRecognitionError)
			}
			return
		case EventEnd:
			return
		}
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.state == Listening
}

func (s *Session) endListening(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.state == Listening {
		s.toIdleLocked()
	}
}

func (s *Session) toIdleLocked() {
	s.state = Idle
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Session) process(ctx context.Context, transcript string) {
	out := s.interp.Interpret(transcript)
	if out.Matched && s.record != nil {
		if err := s.record(ctx, out); err != nil {
			s.logger.ErrorContext(ctx, "Failed to record voice activity", log.FieldError, err, log.FieldCategory, out.Intent.Category)
			s.notifier.Notify(ctx, NoticeNotSaved())
		} else {
			s.notifier.Notify(ctx, NoticeActivityLogged(out.Intent.Category))
		}
	}

	s.mu.Lock()
	s.preview = ""
	s.mu.Unlock()

	select {
	case s.outcomes <- out:
	default:
		s.logger.WarnContext(ctx, "Voice outcome dropped, buffer full")
	}
	s.speak(ctx, out.Response)
}

func (s *Session) speak(ctx context.Context, text string) {
	if s.synth == nil {
		return
	}
	done, err := s.synth.Speak(ctx, NewUtterance(text))
	if err != nil {
		s.logger.WarnContext(ctx, "Speech synthesis failed", log.FieldError, err)
		return
	}
	s.mu.Lock()
	s.speaking = true
	s.mu.Unlock()
	go func() {
		for range done {
		}
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
	}()
}
