package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ecotrack/internal/core"
)

// Routing keys used on the direct exchange.
const (
	RoutingActivityLogged     = "activity.logged"
	RoutingChallengeCompleted = "challenge.completed"
)

// ActivityLoggedMessage carries a full activity record so the worker can
// export it without reading the producer's store.
type ActivityLoggedMessage struct {
	UserID    string              `json:"userId"`
	Activity  core.ActivityRecord `json:"activity"`
	Timestamp time.Time           `json:"timestamp"`
}

// ChallengeCompletedMessage announces points awarded for a challenge.
type ChallengeCompletedMessage struct {
	UserID      string    `json:"userId"`
	ChallengeID string    `json:"challengeId"`
	Points      int       `json:"points"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewActivityLoggedMessage(userID string, rec core.ActivityRecord) *ActivityLoggedMessage {
	return &ActivityLoggedMessage{
		UserID:    userID,
		Activity:  rec,
		Timestamp: time.Now(),
	}
}

func NewChallengeCompletedMessage(userID string, c core.Challenge) *ChallengeCompletedMessage {
	return &ChallengeCompletedMessage{
		UserID:      userID,
		ChallengeID: c.ID,
		Points:      c.Points,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActivityLoggedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON converts the message to JSON bytes
func (m *ChallengeCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityLoggedMessageFromJSON decodes and validates an activity message.
func ActivityLoggedMessageFromJSON(data []byte) (*ActivityLoggedMessage, error) {
	var msg ActivityLoggedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Activity.ID == "" {
		return nil, fmt.Errorf("activity message without activity id")
	}
	return &msg, nil
}

func ChallengeCompletedMessageFromJSON(data []byte) (*ChallengeCompletedMessage, error) {
	var msg ChallengeCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ChallengeID == "" {
		return nil, fmt.Errorf("challenge message without challenge id")
	}
	return &msg, nil
}
