// Package resilience provides fault tolerance patterns for external service calls.
package resilience

import (
	"errors"
	"time"

	"reply_server/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds configuration for a circuit breaker.
type BreakerConfig struct {
	Name             string        // Name for logging
	FailureThreshold uint32        // Consecutive failures before opening (default: 5)
	Cooldown         time.Duration // Time spent open before probing again (default: 30s)
	HalfOpenRequests uint32        // Trial requests allowed while half-open (default: 1)
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// Breaker fails calls fast after repeated failures. It never retries.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker. Zero config fields fall back to defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig(cfg.Name)
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}
	threshold := cfg.FailureThreshold

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn under breaker protection and returns its string result.
func (b *Breaker) Do(fn func() (string, error)) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrCircuitOpen
	}
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

// State returns the breaker state name (closed, half-open, open).
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cb.Name()
}
