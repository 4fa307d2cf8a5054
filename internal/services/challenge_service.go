package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ecotrack/internal/cache"
	"ecotrack/internal/core"
	"ecotrack/internal/log"
	"ecotrack/internal/observability"
	"ecotrack/internal/ports"
)

const leaderboardKey = "top"

// ChallengeView is a catalog entry annotated with the user's status.
type ChallengeView struct {
	core.Challenge
	Status core.ChallengeStatus `json:"status"`
}

// Board is everything the challenges page shows for one user.
type Board struct {
	Profile    core.Profile    `json:"profile"`
	Challenges []ChallengeView `json:"challenges"`
	Completed  int             `json:"completed"`
}

// LeaderboardEntry is one ranked profile; Username is already the display name.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	TotalPoints int    `json:"totalPoints"`
}

// ChallengeService runs the challenge lifecycle and the points leaderboard.
type ChallengeService struct {
	challenges  ports.ChallengeStore
	profiles    ports.ProfileStore
	publisher   ports.EventPublisher
	leaderboard *cache.LRUCache[[]LeaderboardEntry]
	logger      *log.Logger
}

// NewChallengeService caches the leaderboard for ttl; ttl 0 disables caching.
func NewChallengeService(challenges ports.ChallengeStore, profiles ports.ProfileStore, publisher ports.EventPublisher, ttl time.Duration, logger *log.Logger) *ChallengeService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &ChallengeService{
		challenges: challenges,
		profiles:   profiles,
		publisher:  publisher,
		logger:     logger.WithComponent(log.ComponentChallenge),
	}
	if ttl > 0 {
		s.leaderboard = cache.NewLRUCache[[]LeaderboardEntry](1, ttl)
	}
	return s
}

// LeaderboardCache exposes the cache for registration with a cleanup manager.
// It is nil when caching is disabled.
func (s *ChallengeService) LeaderboardCache() *cache.LRUCache[[]LeaderboardEntry] {
	return s.leaderboard
}

// Seed loads the catalog into the store.
func (s *ChallengeService) Seed(ctx context.Context, catalog []core.Challenge) error {
	if err := s.challenges.SeedChallenges(ctx, catalog); err != nil {
		return fmt.Errorf("seed challenges: %w", err)
	}
	s.logger.InfoContext(ctx, "Challenge catalog seeded", "count", len(catalog))
	return nil
}

// Board loads the catalog, the user's progress and profile concurrently.
func (s *ChallengeService) Board(ctx context.Context, userID string) (Board, error) {
	var (
		catalog  []core.Challenge
		progress []core.UserChallenge
		profile  core.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.challenges.ListChallenges(gctx)
		if err != nil {
			return fmt.Errorf("list challenges: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		progress, err = s.challenges.ListUserChallenges(gctx, userID)
		if err != nil {
			return fmt.Errorf("list user challenges: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := s.profiles.GetProfile(gctx, userID)
		switch {
		case errors.Is(err, core.ErrProfileNotFound):
			profile = core.Profile{ID: userID}
		case err != nil:
			return fmt.Errorf("get profile: %w", err)
		default:
			profile = p
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Board{}, err
	}

	b := Board{Profile: profile, Challenges: make([]ChallengeView, len(catalog))}
	for i, c := range catalog {
		st := core.StatusOf(c.ID, progress)
		if st == core.Completed {
			b.Completed++
		}
		b.Challenges[i] = ChallengeView{Challenge: c, Status: st}
	}
	return b, nil
}

func (s *ChallengeService) Start(ctx context.Context, userID, challengeID string) (core.UserChallenge, error) {
	uc, err := s.challenges.StartChallenge(ctx, userID, challengeID)
	if err != nil {
		return core.UserChallenge{}, fmt.Errorf("start challenge %s: %w", challengeID, err)
	}
	s.logger.InfoContext(ctx, "Challenge started", log.FieldUserID, userID, log.FieldChallengeID, challengeID)
	return uc, nil
}

// Complete finishes a started challenge and credits its points.
func (s *ChallengeService) Complete(ctx context.Context, userID, challengeID string) (core.Challenge, error) {
	c, err := s.challenges.CompleteChallenge(ctx, userID, challengeID)
	if err != nil {
		return core.Challenge{}, fmt.Errorf("complete challenge %s: %w", challengeID, err)
	}
	observability.RecordChallengeCompleted()
	s.invalidate()
	s.logger.InfoContext(ctx, "Challenge completed",
		log.FieldUserID, userID,
		log.FieldChallengeID, challengeID,
		"points", c.Points)

	if s.publisher != nil {
		if err := s.publisher.PublishChallengeCompleted(ctx, userID, c); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish challenge completed message",
				log.FieldChallengeID, challengeID, log.FieldError, err)
		}
	}
	return c, nil
}

// UpdateProfile sets the username, keeping accumulated points.
func (s *ChallengeService) UpdateProfile(ctx context.Context, userID, username string) (core.Profile, error) {
	p := core.Profile{ID: userID, Username: strings.TrimSpace(username)}
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	out, err := s.profiles.UpsertProfile(ctx, p)
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	s.invalidate()
	return out, nil
}

// Leaderboard returns the top profiles by points, highest first.
func (s *ChallengeService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if s.leaderboard == nil {
		return s.loadLeaderboard(ctx)
	}
	return s.leaderboard.GetOrLoad(leaderboardKey, func() ([]LeaderboardEntry, error) {
		return s.loadLeaderboard(ctx)
	})
}

func (s *ChallengeService) loadLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	profiles, err := s.profiles.TopProfiles(ctx, core.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	entries := make([]LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.ID,
			Username:    p.DisplayName(),
			TotalPoints: p.TotalPoints,
		}
	}

	return entries, nil
}

func (s *ChallengeService) invalidate() {
	if s.leaderboard != nil {
		s.leaderboard.Purge()
	}
}
