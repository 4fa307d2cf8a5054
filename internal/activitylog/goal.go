package activitylog

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ecotrack/internal/core"
	"ecotrack/internal/ports"
)

// DefaultWeeklyGoal is the kg CO2 ceiling used until a user sets one.
const DefaultWeeklyGoal = 50.0

// GoalStore persists the weekly goal scalar as decimal text, separately from
// the activity log.
type GoalStore struct {
	store    ports.KeyValueStore
	fallback float64
}

// NewGoalStore returns a store answering fallback for users without a goal.
// A non-positive fallback is replaced by DefaultWeeklyGoal.
func NewGoalStore(store ports.KeyValueStore, fallback float64) *GoalStore {
	if fallback <= 0 {
		fallback = DefaultWeeklyGoal
	}
	return &GoalStore{store: store, fallback: fallback}
}

// Load returns the user's goal, or the fallback when none is stored or the
// stored text is not a positive number.
func (g *GoalStore) Load(ctx context.Context, userID string) (float64, error) {
	raw, ok, err := g.store.Get(ctx, UserKey(userID, GoalKey))
	if err != nil {
		return g.fallback, fmt.Errorf("%w: read goal: %v", ErrPersistence, err)
	}
	if !ok {
		return g.fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil || v <= 0 {
		return g.fallback, nil
	}
	return v, nil
}

// Save stores goal for the user. Values <= 0 are rejected with
// core.ErrInvalidGoal and leave the stored goal unchanged.
func (g *GoalStore) Save(ctx context.Context, userID string, goal float64) error {
	if !(goal > 0) || math.IsInf(goal, 1) {
		return core.ErrInvalidGoal
	}
	raw := strconv.FormatFloat(goal, 'f', -1, 64)
	if err := g.store.Set(ctx, UserKey(userID, GoalKey), []byte(raw)); err != nil {
		return fmt.Errorf("%w: write goal: %v", ErrPersistence, err)
	}
	return nil
}
