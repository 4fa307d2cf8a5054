// Package memory provides in-process implementations of every storage port.
// It backs the "memory" data backend and the tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"ecotrack/internal/core"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	kv         map[string][]byte
	challenges []core.Challenge
	userChall  map[string][]core.UserChallenge
	profiles   map[string]core.Profile
	inquiries  []core.BusinessInquiry
	exported   []core.ActivityRecord
}

func New() *Store {
	return &Store{
		now:       time.Now,
		kv:        map[string][]byte{},
		userChall: map[string][]core.UserChallenge{},
		profiles:  map[string]core.Profile{},
	}
}

// WithClock overrides the time source used for challenge timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get implements ports.KeyValueStore.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements ports.KeyValueStore.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements ports.KeyValueStore.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

// SeedChallenges replaces challenges with matching ids and appends new ones.
func (s *Store) SeedChallenges(_ context.Context, challenges []core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range challenges {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("challenge %q: %w", c.ID, err)
		}
		if i := s.challengeIndex(c.ID); i >= 0 {
			s.challenges[i] = c
			continue
		}
		s.challenges = append(s.challenges, c)
	}
	return nil
}

func (s *Store) ListChallenges(_ context.Context) ([]core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.challenges), nil
}

func (s *Store) ListUserChallenges(_ context.Context, userID string) ([]core.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.userChall[userID]), nil
}

func (s *Store) StartChallenge(_ context.Context, userID, challengeID string) (core.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.challengeIndex(challengeID) < 0 {
		return core.UserChallenge{}, core.ErrChallengeNotFound
	}
	for _, uc := range s.userChall[userID] {
		if uc.ChallengeID == challengeID {
			return core.UserChallenge{}, core.ErrChallengeAlreadyStarted
		}
	}
	uc := core.UserChallenge{UserID: userID, ChallengeID: challengeID, StartedAt: s.now()}
	s.userChall[userID] = append(s.userChall[userID], uc)
	return uc, nil
}

// CompleteChallenge marks the user's challenge completed and credits points.
func (s *Store) CompleteChallenge(_ context.Context, userID, challengeID string) (core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.challengeIndex(challengeID)
	if i < 0 {
		return core.Challenge{}, core.ErrChallengeNotFound
	}
	ucs := s.userChall[userID]
	j := slices.IndexFunc(ucs, func(uc core.UserChallenge) bool { return uc.ChallengeID == challengeID })
	if j < 0 {
		return core.Challenge{}, core.ErrChallengeNotStarted
	}
	if ucs[j].Completed {
		return core.Challenge{}, core.ErrChallengeCompleted
	}
	done := s.now()
	ucs[j].Completed = true
	ucs[j].CompletedAt = &done

	c := s.challenges[i]
	p := s.profiles[userID]
	p.ID = userID
	p.TotalPoints += c.Points
	s.profiles[userID] = p
	return c, nil
}

// UpsertProfile updates the username, keeping the accumulated points.
func (s *Store) UpsertProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.profiles[p.ID]
	cur.ID = p.ID
	cur.Username = p.Username
	s.profiles[p.ID] = cur
	return cur, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, core.ErrProfileNotFound
	}
	return p, nil
}

func (s *Store) TopProfiles(_ context.Context, limit int) ([]core.Profile, error) {
	s.mu.Lock()
	out := make([]core.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b core.Profile) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateInquiry(_ context.Context, inq core.BusinessInquiry) (core.BusinessInquiry, error) {
	if err := inq.Validate(); err != nil {
		return core.BusinessInquiry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if inq.CreatedAt.IsZero() {
		inq.CreatedAt = s.now()
	}
	s.inquiries = append(s.inquiries, inq)
	return inq, nil
}

// Inquiries returns a copy of the stored inquiries.
func (s *Store) Inquiries() []core.BusinessInquiry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.inquiries)
}

// ExportActivity stores the record and returns a synthetic row reference.
func (s *Store) ExportActivity(_ context.Context, _ string, rec core.ActivityRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported = append(s.exported, rec)
	return fmt.Sprintf("mem:%d", len(s.exported)), nil
}

// Exported returns a copy of the exported records.
func (s *Store) Exported() []core.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.exported)
}

func (s *Store) challengeIndex(id string) int {
	return slices.IndexFunc(s.challenges, func(c core.Challenge) bool { return c.ID == id })
}
