package amqp

import (
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// newBreaker trips after threshold consecutive failures and stays open for
// timeout. One request is let through half-open: success closes the breaker,
// failure opens it again.
func newBreaker(name string, threshold uint32, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				slog.Warn("AMQP circuit breaker opened", "breaker", name, "threshold", threshold, "retry_after", timeout)
				return
			}
			slog.Info("AMQP circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// newReconnectBackoff doubles from one second up to maxBackoff and never
// gives up; Run owns the stop condition through its context.
func newReconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
