package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ecotrack/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialising connections avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get implements ports.KeyValueStore
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.queries.GetKV(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get kv %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements ports.KeyValueStore
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := r.queries.SetKV(ctx, SetKVParams{Key: key, Value: value, UpdatedAt: r.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("set kv %s: %w", key, err)
	}
	return nil
}

// Delete implements ports.KeyValueStore
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if err := r.queries.DeleteKV(ctx, key); err != nil {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}

// SeedChallenges implements ports.ChallengeStore
func (r *SQLiteRepository) SeedChallenges(ctx context.Context, challenges []core.Challenge) error {
	return r.inTx(ctx, func(q *Queries) error {
		for _, c := range challenges {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("challenge %q: %w", c.ID, err)
			}
			if err := q.UpsertChallenge(ctx, Challenge{
				ID:          c.ID,
				Title:       c.Title,
				Description: c.Description,
				Difficulty:  string(c.Difficulty),
				Points:      int64(c.Points),
				Category:    c.Category,
			}); err != nil {
				return fmt.Errorf("upsert challenge %q: %w", c.ID, err)
			}
		}
		slog.InfoContext(ctx, "Challenge catalog seeded", "count", len(challenges))
		return nil
	})
}

// ListChallenges implements ports.ChallengeStore
func (r *SQLiteRepository) ListChallenges(ctx context.Context) ([]core.Challenge, error) {
	rows, err := r.queries.ListChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	out := make([]core.Challenge, len(rows))
	for i, c := range rows {
		out[i] = toChallenge(c)
	}
	return out, nil
}

// ListUserChallenges implements ports.ChallengeStore
func (r *SQLiteRepository) ListUserChallenges(ctx context.Context, userID string) ([]core.UserChallenge, error) {
	rows, err := r.queries.ListUserChallenges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user challenges: %w", err)
	}
	out := make([]core.UserChallenge, len(rows))
	for i, uc := range rows {
		out[i] = toUserChallenge(uc)
	}
	return out, nil
}

// StartChallenge implements ports.ChallengeStore
func (r *SQLiteRepository) StartChallenge(ctx context.Context, userID, challengeID string) (core.UserChallenge, error) {
	var out core.UserChallenge
	err := r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetChallenge(ctx, challengeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return core.ErrChallengeNotFound
			}
			return fmt.Errorf("get challenge: %w", err)
		}
		if _, err := q.GetUserChallenge(ctx, userID, challengeID); err == nil {
			return core.ErrChallengeAlreadyStarted
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get user challenge: %w", err)
		}
		started := r.now()
		if err := q.InsertUserChallenge(ctx, userID, challengeID, started.UnixMilli()); err != nil {
			return fmt.Errorf("insert user challenge: %w", err)
		}
		out = core.UserChallenge{UserID: userID, ChallengeID: challengeID, StartedAt: time.UnixMilli(started.UnixMilli())}
		return nil
	})
	return out, err
}

// CompleteChallenge implements ports.ChallengeStore. The completion flag and
// the profile points are written in the same transaction.
func (r *SQLiteRepository) CompleteChallenge(ctx context.Context, userID, challengeID string) (core.Challenge, error) {
	var out core.Challenge
	err := r.inTx(ctx, func(q *Queries) error {
		c, err := q.GetChallenge(ctx, challengeID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrChallengeNotFound
		}
		if err != nil {
			return fmt.Errorf("get challenge: %w", err)
		}
		uc, err := q.GetUserChallenge(ctx, userID, challengeID)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrChallengeNotStarted
		}
		if err != nil {
			return fmt.Errorf("get user challenge: %w", err)
		}
		if uc.Completed {
			return core.ErrChallengeCompleted
		}
		n, err := q.CompleteUserChallenge(ctx, userID, challengeID, r.now().UnixMilli())
		if err != nil {
			return fmt.Errorf("complete user challenge: %w", err)
		}
		if n == 0 {
			return core.ErrChallengeCompleted
		}
		if err := q.AddProfilePoints(ctx, userID, c.Points); err != nil {
			return fmt.Errorf("add profile points: %w", err)
		}
		out = toChallenge(c)
		return nil
	})
	if err == nil {
		slog.InfoContext(ctx, "Challenge completed", "user_id", userID, "challenge_id", challengeID, "points", out.Points)
	}
	return out, err
}

// UpsertProfile implements ports.ProfileStore. Points are never overwritten.
func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	row, err := r.queries.UpsertProfileUsername(ctx, p.ID, p.Username)
	if err != nil {
		return core.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return toProfile(row), nil
}

// GetProfile implements ports.ProfileStore
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	row, err := r.queries.GetProfile(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, core.ErrProfileNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return toProfile(row), nil
}

// TopProfiles implements ports.ProfileStore
func (r *SQLiteRepository) TopProfiles(ctx context.Context, limit int) ([]core.Profile, error) {
	rows, err := r.queries.TopProfiles(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("top profiles: %w", err)
	}
	out := make([]core.Profile, len(rows))
	for i, p := range rows {
		out[i] = toProfile(p)
	}
	return out, nil
}

// CreateInquiry implements ports.InquiryStore
func (r *SQLiteRepository) CreateInquiry(ctx context.Context, inq core.BusinessInquiry) (core.BusinessInquiry, error) {
	if err := inq.Validate(); err != nil {
		return core.BusinessInquiry{}, err
	}
	if inq.ID == "" {
		inq.ID = uuid.NewString()
	}
	if inq.CreatedAt.IsZero() {
		inq.CreatedAt = r.now()
	}
	err := r.queries.CreateInquiry(ctx, CreateInquiryParams{
		ID:          inq.ID,
		CompanyName: inq.CompanyName,
		ContactName: inq.ContactName,
		Email:       inq.Email,
		Phone:       inq.Phone,
		Message:     inq.Message,
		CreatedAt:   inq.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return core.BusinessInquiry{}, fmt.Errorf("create inquiry: %w", err)
	}
	slog.InfoContext(ctx, "Business inquiry saved", "id", inq.ID, "company", inq.CompanyName)
	return inq, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toChallenge(c Challenge) core.Challenge {
	return core.Challenge{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Difficulty:  core.Difficulty(c.Difficulty),
		Points:      int(c.Points),
		Category:    c.Category,
	}
}

func toUserChallenge(uc UserChallenge) core.UserChallenge {
	out := core.UserChallenge{
		UserID:      uc.UserID,
		ChallengeID: uc.ChallengeID,
		Completed:   uc.Completed,
		StartedAt:   time.UnixMilli(uc.StartedAt),
	}
	if uc.CompletedAt.Valid {
		t := time.UnixMilli(uc.CompletedAt.Int64)
		out.CompletedAt = &t
	}
	return out
}

func toProfile(p Profile) core.Profile {
	return core.Profile{ID: p.ID, Username: p.Username, TotalPoints: int(p.TotalPoints)}
}
