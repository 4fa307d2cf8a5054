package voice

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu      sync.Mutex
	events  chan Event
	opts    RecognitionOptions
	stopped int
	failErr error
}

func (f *fakeRecognizer) Start(_ context.Context, opts RecognitionOptions) (<-chan Event, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = opts
	f.events = make(chan Event, 8)
	return f.events, nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	close(f.events)
}

func (f *fakeRecognizer) send(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events <- ev
}

type fakeSynth struct {
	mu        sync.Mutex
	spoken    []Utterance
	cancelled int
}

func (f *fakeSynth) Speak(_ context.Context, u Utterance) (<-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, u)
	return make(chan error), nil // never completes until cancelled
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

func (f *fakeSynth) utterances() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Utterance(nil), f.spoken...)
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *noticeRecorder) Notify(_ context.Context, no Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, no)
}

func (n *noticeRecorder) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, no := range n.notices {
		out = append(out, no.Title)
	}
	return out
}

func waitOutcome(t *testing.T, s *Session) Outcome {
	t.Helper()
	select {
	case out := <-s.Outcomes():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestSessionUnsupported(t *testing.T) {
	notes := &noticeRecorder{}
	s := NewSession(nil, nil, WithNotifier(notes))
	assert.ErrorIs(t, s.Toggle(context.Background()), ErrUnsupported)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, []string{"Voice Recognition Not Supported"}, notes.titles())
}

func TestSessionStartFailureStaysIdle(t *testing.T) {
	notes := &noticeRecorder{}
	s := NewSession(&fakeRecognizer{failErr: errors.New("mic busy")}, nil, WithNotifier(notes))
	assert.Error(t, s.Toggle(context.Background()))
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, []string{"Voice Recognition Error"}, notes.titles())
}

func TestSessionFinalTranscriptIsInterpretedAndRecorded(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{}
	synth := &fakeSynth{}
	notes := &noticeRecorder{}
	var recorded []Outcome
	var mu sync.Mutex
	s := NewSession(rec, synth, WithNotifier(notes), WithRecorder(func(_ context.Context, out Outcome) error {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, out)
		return nil
	}))

	require.NoError(t, s.Toggle(ctx))
	assert.Equal(t, Listening, s.State())
	assert.Equal(t, DefaultRecognitionOptions, rec.opts)

	rec.send(Event{Kind: EventResult, Text: "I drove"})
	require.Eventually(t, func() bool { return s.Preview() == "I drove" }, time.Second, 5*time.Millisecond)

	rec.send(Event{Kind: EventResult, Text: "I drove 15 kilometers", Final: true})
	out := waitOutcome(t, s)
	assert.True(t, out.Matched)
	assert.InDelta(t, 3.45, out.CO2, 1e-9)

	mu.Lock()
	assert.Len(t, recorded, 1)
	mu.Unlock()
	assert.Contains(t, notes.titles(), "Activity Logged!")

	require.Eventually(t, s.Speaking, time.Second, 5*time.Millisecond)
	require.Len(t, synth.utterances(), 1)
	u := synth.utterances()[0]
	assert.Equal(t, 0.9, u.Rate)
	assert.Equal(t, 1.0, u.Pitch)
	assert.Equal(t, 0.8, u.Volume)

	s.StopSpeaking()
	assert.False(t, s.Speaking())
	assert.Equal(t, 1, synth.cancelled)

	rec.send(Event{Kind: EventEnd})
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, 5*time.Millisecond)
}

func TestSessionUnmatchedTranscriptRecordsNothing(t *testing.T) {
	rec := &fakeRecognizer{}
	called := false
	s := NewSession(rec, nil, WithRecorder(func(context.Context, Outcome) error {
		called = true
		return nil
	}))
	require.NoError(t, s.Toggle(context.Background()))
	rec.send(Event{Kind: EventResult, Text: "hello there", Final: true})

	out := waitOutcome(t, s)
	assert.False(t, out.Matched)
	assert.Equal(t, ClarificationPrompt, out.Response)
	assert.False(t, called)
}

func TestSessionRecorderFailureRaisesNotice(t *testing.T) {
	rec := &fakeRecognizer{}
	notes := &noticeRecorder{}
	s := NewSession(rec, nil, WithNotifier(notes), WithRecorder(func(context.Context, Outcome) error {
		return errors.New("db down")
	}))
	require.NoError(t, s.Toggle(context.Background()))
	rec.send(Event{Kind: EventResult, Text: "I ate a meat meal", Final: true})

	waitOutcome(t, s)
	assert.Equal(t, []string{"Activity Not Saved"}, notes.titles())
}

func TestSessionRecognitionErrorReturnsToIdle(t *testing.T) {
	rec := &fakeRecognizer{}
	notes := &noticeRecorder{}
	s := NewSession(rec, nil, WithNotifier(notes))
	require.NoError(t, s.Toggle(context.Background()))

	rec.send(Event{Kind: EventError, Err: errors.New("no-speech")})
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Voice Recognition Error"}, notes.titles())
}

func TestSessionToggleStops(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{}
	s := NewSession(rec, nil)

	require.NoError(t, s.Toggle(ctx))
	require.NoError(t, s.Toggle(ctx))
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, rec.stopped)
	require.NoError(t, s.Wait(ctx))

	// stopping twice is harmless
	s.Stop()
	assert.Equal(t, 1, rec.stopped)
}

func TestSessionWithLineRecognizer(t *testing.T) {
	ctx := context.Background()
	lines := NewLineRecognizer(strings.NewReader("I drove 15 kilometers\nwhat is this\n"))
	var buf bytes.Buffer
	s := NewSession(lines, NewWriterSynthesizer(&buf, "> "))

	var outs []Outcome
	for !lines.Exhausted() {
		require.NoError(t, s.Toggle(ctx))
		require.NoError(t, s.Wait(ctx))
		select {
		case out := <-s.Outcomes():
			outs = append(outs, out)
		default:
		}
	}

	require.Len(t, outs, 2)
	assert.True(t, outs[0].Matched)
	assert.False(t, outs[1].Matched)
	assert.Contains(t, buf.String(), "> Got it! I logged 15 km of car travel.")
	assert.Contains(t, buf.String(), "> "+ClarificationPrompt)
}
