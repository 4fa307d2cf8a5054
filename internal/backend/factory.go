package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ecotrack/internal/amqp"
	"ecotrack/internal/localfile"
	"ecotrack/internal/memory"
	"ecotrack/internal/ports"
	"ecotrack/internal/storage"
)

var (
	_ Backend              = (*storage.SQLiteRepository)(nil)
	_ Backend              = (*fileBackend)(nil)
	_ ports.EventPublisher = (*amqp.Client)(nil)
)

type Factory struct {
	logger *slog.Logger
}

// NewFactory logs through slog.Default when logger is nil.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) CreateBackend(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	var res *Result
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		res = &Result{Backend: repo, Ping: repo.Ping, cleanup: repo.Close}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case File:
		files, err := localfile.New(cfg.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("open file backend: %w", err)
		}
		res = &Result{Backend: &fileBackend{Store: memory.New(), files: files}}
		f.logger.InfoContext(ctx, "Initialized file backend", "data_directory", files.Dir())
	default:
		res = &Result{Backend: memory.New()}
		f.logger.InfoContext(ctx, "Initialized memory backend")
	}

	f.attachPublisher(ctx, res, cfg)
	return res, nil
}

// attachPublisher connects the optional AMQP publisher. An unreachable
// broker is logged and skipped so the backend still serves requests.
func (f *Factory) attachPublisher(ctx context.Context, res *Result, cfg Config) {
	if cfg.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "AMQP unavailable, continuing without events", "error", err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	res.Publisher = client
	closeStore := res.cleanup
	res.cleanup = func() error {
		err := client.Close()
		if closeStore != nil {
			err = errors.Join(err, closeStore())
		}
		return err
	}
}

// fileBackend keeps per-user keys (activity logs, goals) on disk and the
// shared challenge, profile and inquiry data in memory.
type fileBackend struct {
	*memory.Store
	files *localfile.Store
}

func (b *fileBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.files.Get(ctx, key)
}

func (b *fileBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.files.Set(ctx, key, value)
}

func (b *fileBackend) Delete(ctx context.Context, key string) error {
	return b.files.Delete(ctx, key)
}
