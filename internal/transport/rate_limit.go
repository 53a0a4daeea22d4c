package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// slowWait is the limiter wait above which a throttled call is logged
const slowWait = 10 * time.Millisecond

// errThrottled marks a rate-limit wait that ended before a token was granted
var errThrottled = errors.New("rate limit wait")

// newLimiter returns nil when rps disables limiting
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// throttle blocks until the service's rate limit admits one more call. A
// wait cut short by ctx is reported to the observer as "throttled".
func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		c.observe("throttled", start)
		return fmt.Errorf("%s: %w: %w", c.opts.Name, errThrottled, err)
	}
	if waited := time.Since(start); waited > slowWait {
		c.logger.Debug().Dur("waited", waited).Msg("rate limited")
	}
	return nil
}
