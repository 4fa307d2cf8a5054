// Package worker exports logged activities to an external sink.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecotrack/internal/amqp"
	"ecotrack/internal/core"
	"ecotrack/internal/log"
	"ecotrack/internal/observability"
	"ecotrack/internal/ports"
)

// maxPending bounds the retry queue; older entries are dropped first.
const maxPending = 1000

type pendingExport struct {
	userID   string
	activity core.ActivityRecord
	attempts int
}

// ExportWorker handles activity.logged messages by appending each activity to
// the exporter. Failed exports are acked and queued for retry in batches so a
// broken sink does not spin the broker.
type ExportWorker struct {
	exporter  ports.ActivityExporter
	logger    *log.Logger
	batchSize int
	interval  time.Duration

	mu      sync.Mutex
	pending []pendingExport
}

func NewExportWorker(exporter ports.ActivityExporter, logger *log.Logger, batchSize int, interval time.Duration) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExportWorker{
		exporter:  exporter,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
		interval:  interval,
	}
}

// Handlers returns the AMQP handlers served by this worker.
func (w *ExportWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		ActivityLogged:     w.HandleActivityLogged,
		ChallengeCompleted: w.HandleChallengeCompleted,
	}
}

// HandleActivityLogged exports one activity. It only returns an error for
// messages that should be requeued as-is, which never happens today.
func (w *ExportWorker) HandleActivityLogged(ctx context.Context, msg *amqp.ActivityLoggedMessage) error {
	if err := w.export(ctx, msg.UserID, msg.Activity); err != nil {
		w.enqueue(pendingExport{userID: msg.UserID, activity: msg.Activity, attempts: 1})
	}
	return nil
}

func (w *ExportWorker) HandleChallengeCompleted(ctx context.Context, msg *amqp.ChallengeCompletedMessage) error {
	w.logger.InfoContext(ctx, "Challenge completed",
		log.FieldUserID, msg.UserID,
		log.FieldChallengeID, msg.ChallengeID,
		"points", msg.Points)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, userID string, rec core.ActivityRecord) error {
	ref, err := w.exporter.ExportActivity(ctx, userID, rec)
	observability.RecordExport(err == nil, time.Now())
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export activity",
			log.FieldUserID, userID,
			log.FieldActivityID, rec.ID,
			log.FieldError, err)
		return fmt.Errorf("export activity %s: %w", rec.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported activity",
		log.FieldUserID, userID,
		log.FieldActivityID, rec.ID,
		log.FieldCategory, string(rec.Category),
		log.FieldCO2, rec.ComputedCO2,
		log.FieldExportRef, ref)
	return nil
}

func (w *ExportWorker) enqueue(p pendingExport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, p)
	if over := len(w.pending) - maxPending; over > 0 {
		w.logger.Warn("Export retry queue full, dropping oldest entries", "dropped", over)
		w.pending = w.pending[over:]
	}
}

// Pending returns the number of exports waiting for retry.
func (w *ExportWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// RetryPending retries up to one batch of failed exports and returns how many
// succeeded. Failures go back to the end of the queue.
func (w *ExportWorker) RetryPending(ctx context.Context) int {
	w.mu.Lock()
	n := min(w.batchSize, len(w.pending))
	batch := append([]pendingExport(nil), w.pending[:n]...)
	w.pending = w.pending[n:]
	w.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	w.logger.InfoContext(ctx, "Retrying pending exports", "count", len(batch))
	ok := 0
	for _, p := range batch {
		if ctx.Err() != nil {
			w.enqueue(p)
			continue
		}
		if err := w.export(ctx, p.userID, p.activity); err != nil {
			p.attempts++
			w.enqueue(p)
			continue
		}
		ok++
	}
	return ok
}

// Consumer delivers messages to handlers until ctx is done.
type Consumer interface {
	Run(ctx context.Context, h amqp.Handlers) error
}

// Run consumes messages and retries failed exports on the configured
// interval until ctx is cancelled or the consumer fails.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(ctx, w.Handlers())
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.RetryPending(ctx)
			}
		}
	})

	return g.Wait()
}
