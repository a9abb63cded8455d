package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	Limit() rate.Limit
}

// Per returns the rate of eventCount events every duration.
func Per(eventCount int, duration time.Duration) rate.Limit {
	if eventCount <= 0 {
		return rate.Inf
	}
	return rate.Every(duration / time.Duration(eventCount))
}

type multiLimiter struct {
	limiters []RateLimiter
}

// Multi combines limiters so that a Wait honours all of them. The most
// restrictive limiter reports the combined Limit.
func Multi(limiters ...RateLimiter) RateLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &multiLimiter{limiters: limiters}
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *multiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}
	return l.limiters[0].Limit()
}
