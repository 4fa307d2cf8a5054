// Package backend builds the storage stack selected by DATA_BACKEND, plus
// the optional AMQP event publisher.
package backend

import (
	"context"
	"fmt"
	"slices"

	"ecotrack/internal/ports"
)

// Backend is everything the services persist.
type Backend interface {
	ports.KeyValueStore
	ports.ChallengeStore
	ports.ProfileStore
	ports.InquiryStore
}

// Result is a built backend with its companions. Publisher is nil when no
// broker is configured; Ping is nil for backends with nothing to check.
type Result struct {
	Backend   Backend
	Publisher ports.EventPublisher
	Ping      func(ctx context.Context) error
	cleanup   func() error
}

// Close releases the database and broker connections.
func (r *Result) Close() error {
	if r == nil || r.cleanup == nil {
		return nil
	}
	return r.cleanup()
}

type Type string

const (
	Memory Type = "memory"
	File   Type = "file"
	SQLite Type = "sqlite"
)

// Types lists the supported backends in documentation order.
func Types() []Type {
	return []Type{Memory, File, SQLite}
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !slices.Contains(Types(), t) {
		return "", fmt.Errorf("unknown data backend %q (want one of %v)", s, Types())
	}
	return t, nil
}
