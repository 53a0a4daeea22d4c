package transport

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

func newBreaker(opts Options, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	timeout := opts.BreakerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	threshold := uint32(opts.BreakerFailures)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
