package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/wenzapen/scraper/collect"
	"github.com/wenzapen/scraper/limiter"
	"github.com/wenzapen/scraper/selector"
	"github.com/wenzapen/scraper/storage"
)

type Option func(opts *options)

type options struct {
	concurrency      int
	throttleRequests int
	throttleInterval time.Duration
	timeout          time.Duration
	fetcher          collect.Fetcher
	delayFrom        time.Duration
	delayTo          time.Duration
	queueLimit       int
	rateLimit        limiter.RateLimiter
	filters          selector.Filters
	logger           *zap.Logger
	storage          storage.Storage
	pageHook         func(Page)
	requestHook      func(*collect.Request)
	responseHook     func(*collect.Response)
	retryBackoff     time.Duration
}

var DefaultOptions = options{
	logger:       zap.NewNop(),
	filters:      selector.Filters{},
	retryBackoff: 50 * time.Millisecond,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithConcurrency bounds the number of fetches in flight. n <= 0 means no
// bound.
func WithConcurrency(n int) Option {
	return func(opts *options) {
		opts.concurrency = n
	}
}

// WithThrottle allows at most requests fetches per interval.
func WithThrottle(requests int, interval time.Duration) Option {
	return func(opts *options) {
		opts.throttleRequests = requests
		opts.throttleInterval = interval
	}
}

// WithTimeout fails a fetch that has not completed after d.
func WithTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.timeout = d
	}
}

func WithFetcher(fetcher collect.Fetcher) Option {
	return func(opts *options) {
		opts.fetcher = fetcher
	}
}

// WithDelay adds a random pause in [from, to] before every fetch.
func WithDelay(from, to time.Duration) Option {
	return func(opts *options) {
		opts.delayFrom = from
		opts.delayTo = to
	}
}

// WithQueueLimit bounds queued plus running fetches. n <= 0 means no bound.
func WithQueueLimit(n int) Option {
	return func(opts *options) {
		opts.queueLimit = n
	}
}

// WithRateLimit makes every fetch wait on l as well as on the throttle.
func WithRateLimit(l limiter.RateLimiter) Option {
	return func(opts *options) {
		opts.rateLimit = l
	}
}

func WithFilters(filters selector.Filters) Option {
	return func(opts *options) {
		opts.filters = filters
	}
}

// WithStorage saves the result of every crawled page to s.
func WithStorage(s storage.Storage) Option {
	return func(opts *options) {
		opts.storage = s
	}
}

// WithPageHook calls fn after each page has been extracted.
func WithPageHook(fn func(Page)) Option {
	return func(opts *options) {
		opts.pageHook = fn
	}
}

// WithRequestHook lets fn modify each request before it is sent.
func WithRequestHook(fn func(*collect.Request)) Option {
	return func(opts *options) {
		opts.requestHook = fn
	}
}

// WithResponseHook lets fn inspect or modify each response before it is
// parsed.
func WithResponseHook(fn func(*collect.Response)) Option {
	return func(opts *options) {
		opts.responseHook = fn
	}
}

// WithRetryBackoff sets how long a fetch waits before retrying when the
// queue is full.
func WithRetryBackoff(d time.Duration) Option {
	return func(opts *options) {
		opts.retryBackoff = d
	}
}
