package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

// Event is delivered by a Recognizer while a recognition session runs.
type Event struct {
	Kind  EventKind
	Text  string // transcript for EventResult
	Final bool   // partial results only update the preview
	Err   error  // set for EventError
}

type RecognitionOptions struct {
	Continuous     bool
	InterimResults bool
	Locale         string
}

// DefaultRecognitionOptions stops after one utterance and streams partial
// transcripts.
var DefaultRecognitionOptions = RecognitionOptions{Continuous: false, InterimResults: true, Locale: "en-US"}

// Recognizer is a speech-to-text capability. Start begins one session whose
// events arrive on the returned channel, which is closed after the last one.
type Recognizer interface {
	Start(ctx context.Context, opts RecognitionOptions) (<-chan Event, error)
	Stop()
}

// Utterance is one text-to-speech request.
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// NewUtterance applies the assistant's voice settings.
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Rate: 0.9, Pitch: 1, Volume: 0.8}
}

// Synthesizer is a text-to-speech capability. The channel returned by Speak
// receives nil (or the playback error) and is closed when speech ends or is
// cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) (<-chan error, error)
	Cancel()
}

type lineResult struct {
	text string
	err  error
}

// LineRecognizer treats each line read from r as one spoken utterance. It is
// the recognizer of the command line client.
type LineRecognizer struct {
	r     io.Reader
	once  sync.Once
	lines chan lineResult

	mu        sync.Mutex
	stop      chan struct{}
	exhausted bool
}

func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: r, lines: make(chan lineResult)}
}

func (l *LineRecognizer) readLoop() {
	go func() {
		defer close(l.lines)
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			l.lines <- lineResult{text: sc.Text()}
		}
		if err := sc.Err(); err != nil {
			l.lines <- lineResult{err: fmt.Errorf("read transcript: %w", err)}
		}
	}()
}

// Start waits for the next line. With interim results enabled the line is
// first reported as a partial result, then as the final one.
func (l *LineRecognizer) Start(ctx context.Context, opts RecognitionOptions) (<-chan Event, error) {
	l.once.Do(l.readLoop)

	stop := make(chan struct{})
	l.mu.Lock()
	l.stop = stop
	l.mu.Unlock()

	events := make(chan Event, 3)
	go func() {
		defer close(events)
		select {
		case <-stop:
		case <-ctx.Done():
		case lr, ok := <-l.lines:
			switch {
			case !ok:
				l.mu.Lock()
				l.exhausted = true
				l.mu.Unlock()
			case lr.err != nil:
				events <- Event{Kind: EventError, Err: lr.err}
				return
			default:
				if opts.InterimResults {
					events <- Event{Kind: EventResult, Text: lr.text}
				}
				events <- Event{Kind: EventResult, Text: lr.text, Final: true}
			}
		}
		events <- Event{Kind: EventEnd}
	}()
	return events, nil
}

// Stop ends the current session without consuming a line.
func (l *LineRecognizer) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

// Exhausted reports whether the input has been fully consumed.
func (l *LineRecognizer) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exhausted
}

// WriterSynthesizer "speaks" by writing each utterance as a line to w.
type WriterSynthesizer struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

func NewWriterSynthesizer(w io.Writer, prefix string) *WriterSynthesizer {
	return &WriterSynthesizer{w: w, prefix: prefix}
}

func (s *WriterSynthesizer) Speak(ctx context.Context, u Utterance) (<-chan error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, err := fmt.Fprintln(s.w, s.prefix+u.Text)
	s.mu.Unlock()

	done := make(chan error, 1)
	done <- err
	close(done)
	return done, nil
}

// Cancel is a no-op, writes complete synchronously.
func (s *WriterSynthesizer) Cancel() {}
