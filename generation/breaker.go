package generation

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures the per-candidate circuit breakers.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Default: 3.
	ConsecutiveFailures uint32
	// OpenTimeout is how long an open breaker skips its candidate before a
	// trial request. Default: 30s.
	OpenTimeout time.Duration
	// Interval clears the counts of a closed breaker. Zero never clears.
	Interval time.Duration
	// HalfOpenRequests is the number of trial requests. Default: 1.
	HalfOpenRequests uint32
}

func (b BreakerConfig) withDefaults() BreakerConfig {
	if b.ConsecutiveFailures == 0 {
		b.ConsecutiveFailures = 3
	}
	if b.OpenTimeout == 0 {
		b.OpenTimeout = 30 * time.Second
	}
	if b.HalfOpenRequests == 0 {
		b.HalfOpenRequests = 1
	}
	return b
}

func newBreaker(name string, config BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	config = config.withDefaults()
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.HalfOpenRequests,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("candidate", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller cancellation is not a candidate failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}
