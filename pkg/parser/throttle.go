package parser

import (
	"time"

	"golang.org/x/time/rate"
)

// ChangeThrottle rate-limits how often an Engine announces that its
// partial view changed, so a caller streaming to a slow UI isn't forced to
// redraw on every single tag event. It is optional: an Engine with a nil
// throttle notifies on every change.
type ChangeThrottle struct {
	limiter *rate.Limiter
}

// NewChangeThrottle creates a throttle that allows at most one
// notification every interval, with a single-notification burst.
func NewChangeThrottle(interval time.Duration) *ChangeThrottle {
	return &ChangeThrottle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether a notification may be sent right now. It never
// blocks: a caller that is throttled should rely on the next change to
// re-trigger the check rather than waiting.
func (c *ChangeThrottle) Allow() bool {
	if c == nil {
		return true
	}
	return c.limiter.Allow()
}
