package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wenzapen/scraper/batch"
	"github.com/wenzapen/scraper/collect"
)

var (
	ErrQueueFull = errors.New("queue limit reached, try later")
	ErrTimeout   = errors.New("job timed out")
)

type FetchFunc func(ctx context.Context, url string) (*collect.Response, error)

type job struct {
	id         uuid.UUID
	ctx        context.Context
	url        string
	completion *batch.Completion
}

// Queue runs fetches first in, first out with a bounded number in flight.
type Queue struct {
	fetch       FetchFunc
	concurrency int
	limit       int
	timeout     time.Duration
	logger      *zap.Logger

	mu       sync.Mutex
	reqQueue []*job
	pending  int
}

// NewQueue returns a queue running fetch. concurrency and limit <= 0 mean
// no bound; timeout <= 0 disables job timeouts.
func NewQueue(fetch FetchFunc, concurrency, limit int, timeout time.Duration, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		fetch:       fetch,
		concurrency: concurrency,
		limit:       limit,
		timeout:     timeout,
		logger:      logger.Named("queue"),
	}
}

// Enqueue schedules a fetch of url. done is called exactly once with the
// outcome, unless Enqueue returns an error, in which case it is never
// called.
func (q *Queue) Enqueue(ctx context.Context, url string, done func(*collect.Response, error)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.reqQueue)+q.pending >= q.limit {
		return ErrQueueFull
	}

	j := &job{id: uuid.New(), ctx: ctx, url: url}
	j.completion = batch.NewCompletion(func(err error, v any) {
		q.release()
		resp, _ := v.(*collect.Response)
		done(resp, err)
	})
	q.reqQueue = append(q.reqQueue, j)
	q.logger.Debug("queued", zap.Stringer("job", j.id), zap.String("url", url))
	q.schedule()
	return nil
}

// Len returns the number of queued and running jobs.
func (q *Queue) Len() (queued, pending int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqQueue), q.pending
}

// schedule starts queued jobs while slots are free. q.mu must be held.
func (q *Queue) schedule() {
	for len(q.reqQueue) > 0 && (q.concurrency <= 0 || q.pending < q.concurrency) {
		j := q.reqQueue[0]
		q.reqQueue = q.reqQueue[1:]
		q.pending++
		go q.run(j)
	}
}

func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	q.schedule()
}

func (q *Queue) run(j *job) {
	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()

	if q.timeout > 0 {
		timer := time.AfterFunc(q.timeout, func() {
			if j.completion.Fire(fmt.Errorf("%w after %s", ErrTimeout, q.timeout), nil) {
				q.logger.Warn("timeout", zap.Stringer("job", j.id), zap.String("url", j.url))
				cancel()
			}
		})
		defer timer.Stop()
	}

	resp, err := q.fetch(ctx, j.url)
	if !j.completion.Fire(err, resp) {
		q.logger.Debug("late completion dropped", zap.Stringer("job", j.id))
	}
}
