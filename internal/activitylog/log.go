// Package activitylog keeps the append-only activity history and the weekly
// goal of each user, written through to a key-value store.
package activitylog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"ecotrack/internal/core"
	"ecotrack/internal/ports"

	"github.com/google/uuid"
)

// Storage keys, relative to the user namespace.
const (
	ActivitiesKey = "carbonActivities"
	GoalKey       = "weeklyGoal"
)

var (
	// ErrCorruptLog is returned when the stored activity list cannot be decoded.
	ErrCorruptLog = errors.New("stored activity log is corrupt")
	// ErrPersistence wraps failures of the underlying store.
	ErrPersistence = errors.New("activity persistence failed")
	// ErrNotSaved means an appended record is in memory but was not written.
	// It wraps ErrPersistence.
	ErrNotSaved = fmt.Errorf("%w: record kept in memory only", ErrPersistence)
)

// UserKey namespaces key under the given user. An empty user keeps the bare
// key, matching a single-user local store.
func UserKey(userID, key string) string {
	if userID == "" {
		return key
	}
	return "user/" + userID + "/" + key
}

// Log is the ordered activity history of one user. Records are never
// reordered, edited or removed individually.
type Log struct {
	mu      sync.RWMutex
	store   ports.KeyValueStore
	key     string
	records []core.ActivityRecord
}

// Open restores the log of userID. A missing key yields an empty log; stored
// content that does not decode yields ErrCorruptLog.
func Open(ctx context.Context, store ports.KeyValueStore, userID string) (*Log, error) {
	l := &Log{store: store, key: UserKey(userID, ActivitiesKey)}
	records, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	l.records = records
	return l, nil
}

func (l *Log) load(ctx context.Context) ([]core.ActivityRecord, error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, l.key, err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var records []core.ActivityRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	return records, nil
}

// LoadAll re-reads the stored sequence, replacing the in-memory copy.
func (l *Log) LoadAll(ctx context.Context) ([]core.ActivityRecord, error) {
	records, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
	return slices.Clone(records), nil
}

// Records returns a copy of the in-memory sequence in insertion order.
func (l *Log) Records() []core.ActivityRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.records)
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Append adds rec at the end of the log and writes the whole sequence
// through. A missing ID is generated. When the write fails the record stays
// in memory and the returned error wraps ErrNotSaved.
func (l *Log) Append(ctx context.Context, rec core.ActivityRecord) (core.ActivityRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.ActivityRecord{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	snapshot := slices.Clone(l.records)
	l.mu.Unlock()

	if err := l.persist(ctx, snapshot); err != nil {
		return rec, err
	}
	return rec, nil
}

// Reset drops every record.
func (l *Log) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.records = nil
	l.mu.Unlock()
	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistence, l.key, err)
	}
	return nil
}

func (l *Log) persist(ctx context.Context, records []core.ActivityRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrNotSaved, err)
	}
	if err := l.store.Set(ctx, l.key, raw); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrNotSaved, l.key, err)
	}
	return nil
}

// Registry hands out one Log per user so that every append for a user goes
// through the same owner.
type Registry struct {
	store ports.KeyValueStore
	mu    sync.Mutex
	logs  map[string]*Log
}

func NewRegistry(store ports.KeyValueStore) *Registry {
	return &Registry{store: store, logs: map[string]*Log{}}
}

// For returns the log of userID, opening it on first use. Failed opens are
// not cached so a corrupt log is reported on every call.
func (r *Registry) For(ctx context.Context, userID string) (*Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.logs[userID]; ok {
		return l, nil
	}
	l, err := Open(ctx, r.store, userID)
	if err != nil {
		return nil, err
	}
	r.logs[userID] = l
	return l, nil
}

// Store returns the key-value store shared by the registry's logs.
func (r *Registry) Store() ports.KeyValueStore { return r.store }
