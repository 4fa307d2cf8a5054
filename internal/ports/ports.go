package ports

import (
	"context"

	"ecotrack/internal/core"
)

// Ports for outbound adapters.
type (
	// KeyValueStore is the durable string-keyed blob store backing the
	// activity log and the weekly goal. Get reports ok=false for a missing key.
	KeyValueStore interface {
		Get(ctx context.Context, key string) (value []byte, ok bool, err error)
		Set(ctx context.Context, key string, value []byte) error
		Delete(ctx context.Context, key string) error
	}

	// ChallengeStore persists the challenge catalog and per-user progress.
	ChallengeStore interface {
		SeedChallenges(ctx context.Context, challenges []core.Challenge) error
		ListChallenges(ctx context.Context) ([]core.Challenge, error)
		ListUserChallenges(ctx context.Context, userID string) ([]core.UserChallenge, error)
		StartChallenge(ctx context.Context, userID, challengeID string) (core.UserChallenge, error)
		// CompleteChallenge marks the challenge completed and credits its
		// points to the user's profile in one step.
		CompleteChallenge(ctx context.Context, userID, challengeID string) (core.Challenge, error)
	}

	// ProfileStore holds user profiles and the points leaderboard.
	ProfileStore interface {
		UpsertProfile(ctx context.Context, p core.Profile) (core.Profile, error)
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		// TopProfiles returns at most limit profiles ordered by points desc.
		TopProfiles(ctx context.Context, limit int) ([]core.Profile, error)
	}

	InquiryStore interface {
		CreateInquiry(ctx context.Context, inq core.BusinessInquiry) (core.BusinessInquiry, error)
	}

	// ActivityExporter appends a logged activity to an external sink.
	ActivityExporter interface {
		ExportActivity(ctx context.Context, userID string, rec core.ActivityRecord) (ref string, err error)
	}

	// EventPublisher announces domain events to asynchronous consumers.
	EventPublisher interface {
		PublishActivityLogged(ctx context.Context, userID string, rec core.ActivityRecord) error
		PublishChallengeCompleted(ctx context.Context, userID string, c core.Challenge) error
	}
)
