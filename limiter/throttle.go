package limiter

import (
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces requests so that at most requests calls fall in each
// interval. Wait never blocks; it reports how long the caller has to hold
// off, and callers arriving together are queued one slot apart.
type Throttle struct {
	limiter  *rate.Limiter
	requests int
	interval time.Duration
}

// NewThrottle allows requests calls per interval. A non-positive value for
// either disables throttling.
func NewThrottle(requests int, interval time.Duration) *Throttle {
	t := &Throttle{requests: requests, interval: interval}
	if requests <= 0 || interval <= 0 {
		t.limiter = rate.NewLimiter(rate.Inf, 1)
		return t
	}
	t.limiter = rate.NewLimiter(Per(requests, interval), 1)
	return t
}

func (t *Throttle) Wait() time.Duration {
	return t.WaitAt(time.Now())
}

// WaitAt is Wait with an explicit clock.
func (t *Throttle) WaitAt(now time.Time) time.Duration {
	return t.limiter.ReserveN(now, 1).DelayFrom(now)
}

// Rate returns the configured requests and interval.
func (t *Throttle) Rate() (int, time.Duration) {
	return t.requests, t.interval
}

// Delayer produces a random delay in [from, to].
type Delayer struct {
	from, to time.Duration
}

func NewDelayer(from, to time.Duration) *Delayer {
	if to < from {
		to = from
	}
	return &Delayer{from: from, to: to}
}

func (d *Delayer) Next() time.Duration {
	if d == nil || d.to <= 0 {
		return 0
	}
	if d.to == d.from {
		return d.from
	}
	return d.from + time.Duration(rand.Int63n(int64(d.to-d.from)+1))
}

func (d *Delayer) Range() (time.Duration, time.Duration) {
	return d.from, d.to
}
