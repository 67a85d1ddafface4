package trigger

import (
	"errors"
	"sync"
	"time"
)

// ErrThrottled is returned by Fire, and logged for scheduled and file
// firings, when a trigger has used up its run allowance.
var ErrThrottled = errors.New("trigger: run limit reached")

// runLimiter is a token bucket holding up to burst runs and refilling at
// rate runs per second. The zero value is not usable.
type runLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func newRunLimiter(runs int, per time.Duration) *runLimiter {
	return &runLimiter{
		rate:   float64(runs) / per.Seconds(),
		burst:  float64(runs),
		tokens: float64(runs),
		last:   time.Now(),
	}
}

// allow takes one token if one is available at now.
func (l *runLimiter) allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+elapsed.Seconds()*l.rate)
		l.last = now
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
