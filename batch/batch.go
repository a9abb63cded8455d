package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Progress describes one completed task of a running batch.
type Progress struct {
	Index    int
	Value    any
	Err      error
	Pending  int
	Total    int
	Complete int
	Percent  int
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

type options struct {
	concurrency int
	throws      bool
	progress    func(Progress)
}

type Option func(opts *options)

var defaultOptions = options{
	throws: true,
}

// WithConcurrency bounds the number of tasks in flight. n <= 0 means no bound.
func WithConcurrency(n int) Option {
	return func(opts *options) {
		opts.concurrency = n
	}
}

// WithThrows selects the error policy. With throws (the default) the first
// error ends the batch; without it every task runs and failures are
// reported together as Errors.
func WithThrows(throws bool) Option {
	return func(opts *options) {
		opts.throws = throws
	}
}

func WithProgress(fn func(Progress)) Option {
	return func(opts *options) {
		opts.progress = fn
	}
}

type Batch struct {
	options
	tasks []Task
}

func New(opts ...Option) *Batch {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Batch{options: options}
}

func (b *Batch) Push(tasks ...Task) *Batch {
	b.tasks = append(b.tasks, tasks...)
	return b
}

func (b *Batch) Len() int { return len(b.tasks) }

// End runs every pushed task and returns their values indexed by
// submission order, independent of completion order.
//
// In throws mode the first error is returned as soon as it happens. Tasks
// queued behind it are never started; tasks already running see a
// cancelled context and finish in the background, their results dropped.
// Otherwise the returned error, if any, is an Errors holding one entry
// per task.
func (b *Batch) End(ctx context.Context) ([]any, error) {
	total := len(b.tasks)
	results := make([]any, total)
	if total == 0 {
		return results, nil
	}
	errs := make([]error, total)

	g, gctx := &errgroup.Group{}, ctx
	if b.throws {
		g, gctx = errgroup.WithContext(ctx)
	}
	if b.concurrency > 0 {
		g.SetLimit(b.concurrency)
	}

	var (
		mu       sync.Mutex
		pending  = total
		failed   = make(chan error, 1)
		stopped  = make(chan struct{})
		finished = make(chan error, 1)
	)
	run := func(i int, t Task) error {
		if b.throws && gctx.Err() != nil {
			return gctx.Err()
		}
		start := time.Now()
		v, err := Await(gctx, t)
		end := time.Now()

		mu.Lock()
		defer mu.Unlock()
		select {
		case <-stopped:
			// the batch already failed
			return err
		default:
		}
		pending--
		if b.progress != nil {
			b.progress(Progress{
				Index:    i,
				Value:    v,
				Err:      err,
				Pending:  pending,
				Total:    total,
				Complete: total - pending,
				Percent:  (total - pending) * 100 / total,
				Start:    start,
				End:      end,
				Duration: end.Sub(start),
			})
		}
		if err != nil && b.throws {
			failed <- err
			close(stopped)
			return err
		}
		results[i], errs[i] = v, err
		return nil
	}

	// g.Go blocks once the limit is reached, so submission must not hold
	// up the caller either.
	go func() {
		for i, t := range b.tasks {
			i, t := i, t
			g.Go(func() error { return run(i, t) })
		}
		finished <- g.Wait()
	}()

	select {
	case err := <-failed:
		return nil, err
	case err := <-finished:
		select {
		case ferr := <-failed:
			return nil, ferr
		default:
		}
		if err != nil {
			return nil, err
		}
	}
	for _, err := range errs {
		if err != nil {
			return results, Errors(errs)
		}
	}
	return results, nil
}

// Errors holds the per-task errors of a batch run without throws. Entries
// of tasks that succeeded are nil.
type Errors []error

func (e Errors) Error() string {
	var msgs []string
	for i, err := range e {
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("task %d: %v", i, err))
		}
	}
	return strings.Join(msgs, "; ")
}

func (e Errors) Unwrap() []error {
	var out []error
	for _, err := range e {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
