package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

const (
	NotStarted ChallengeStatus = "not_started"
	InProgress ChallengeStatus = "in_progress"
	Completed  ChallengeStatus = "completed"
)

// LeaderboardSize is the number of profiles returned by leaderboard reads.
const LeaderboardSize = 100

// AnonymousName is displayed for profiles without a username.
const AnonymousName = "Anonymous"

type (
	Difficulty      string
	ChallengeStatus string

	// Challenge is a gamified goal users can start and complete for points.
	Challenge struct {
		ID          string     `json:"id" yaml:"id"`
		Title       string     `json:"title" yaml:"title"`
		Description string     `json:"description" yaml:"description"`
		Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
		Points      int        `json:"points" yaml:"points"`
		Category    string     `json:"category" yaml:"category"`
	}

	// UserChallenge links a user to a challenge they started.
	UserChallenge struct {
		UserID      string     `json:"userId"`
		ChallengeID string     `json:"challengeId"`
		Completed   bool       `json:"completed"`
		StartedAt   time.Time  `json:"startedAt"`
		CompletedAt *time.Time `json:"completedAt,omitempty"`
	}

	// Profile carries the public identity and point total of a user.
	Profile struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		TotalPoints int    `json:"totalPoints"`
	}

	// BusinessInquiry is a contact request from an organisation.
	BusinessInquiry struct {
		ID          string    `json:"id"`
		CompanyName string    `json:"companyName"`
		ContactName string    `json:"contactName"`
		Email       string    `json:"email"`
		Phone       string    `json:"phone,omitempty"`
		Message     string    `json:"message"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

var (
	ErrChallengeNotFound       = errors.New("challenge not found")
	ErrChallengeAlreadyStarted = errors.New("challenge already started")
	ErrChallengeNotStarted     = errors.New("challenge not started")
	ErrChallengeCompleted      = errors.New("challenge already completed")
	ErrProfileNotFound         = errors.New("profile not found")
	ErrEmptyUserID             = errors.New("empty user id")
	ErrUsernameTooLong         = errors.New("username too long (max 50 characters)")
	ErrEmptyCompanyName        = errors.New("empty company name")
	ErrEmptyContactName        = errors.New("empty contact name")
	ErrInvalidEmail            = errors.New("invalid email address")
	ErrEmptyMessage            = errors.New("empty message")
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

func (c Challenge) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("challenge id cannot be empty")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("challenge title cannot be empty")
	}
	if !c.Difficulty.Valid() {
		return errors.New("invalid challenge difficulty")
	}
	if c.Points < 0 {
		return errors.New("challenge points cannot be negative")
	}
	return nil
}

// StatusOf derives the status of challengeID from the user's challenges.
func StatusOf(challengeID string, userChallenges []UserChallenge) ChallengeStatus {
	for _, uc := range userChallenges {
		if uc.ChallengeID != challengeID {
			continue
		}
		if uc.Completed {
			return Completed
		}
		return InProgress
	}
	return NotStarted
}

// DisplayName returns the username or AnonymousName when blank.
func (p Profile) DisplayName() string {
	if strings.TrimSpace(p.Username) == "" {
		return AnonymousName
	}
	return p.Username
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyUserID
	}
	if len(p.Username) > 50 {
		return ErrUsernameTooLong
	}
	return nil
}

func (i BusinessInquiry) Validate() error {
	if strings.TrimSpace(i.CompanyName) == "" {
		return ErrEmptyCompanyName
	}
	if strings.TrimSpace(i.ContactName) == "" {
		return ErrEmptyContactName
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(i.Email)); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(i.Message) == "" {
		return ErrEmptyMessage
	}
	if len(i.Message) > 5000 {
		return errors.New("message too long (max 5000 characters)")
	}
	return nil
}
