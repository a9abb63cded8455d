// Package batch runs heterogeneous units of work with bounded concurrency
// and collects their results in submission order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
)

var ErrPanic = errors.New("task panicked")

// Task is a unit of work. The variants are built with Value, Func,
// Callback and Steps; Invoke normalizes all of them to one completion call.
type Task interface {
	start(ctx context.Context, done func(err error, v any))
}

type value struct{ v any }

func (t value) start(_ context.Context, done func(error, any)) { done(nil, t.v) }

// Value is a task that completes immediately with v.
func Value(v any) Task { return value{v} }

type future func(ctx context.Context) (any, error)

func (fn future) start(ctx context.Context, done func(error, any)) {
	v, err := fn(ctx)
	done(err, v)
}

// Func wraps a function returning its result directly.
func Func(fn func(ctx context.Context) (any, error)) Task { return future(fn) }

type callback func(ctx context.Context, done func(err error, v any))

func (fn callback) start(ctx context.Context, done func(error, any)) { fn(ctx, done) }

// Callback wraps a function that reports through done, possibly from
// another goroutine. done may be called more than once; only the first
// call counts.
func Callback(fn func(ctx context.Context, done func(err error, v any))) Task {
	return callback(fn)
}

// Yield suspends a Steps task until t completes and hands back its result.
type Yield func(t Task) (any, error)

type steps func(ctx context.Context, yield Yield) (any, error)

func (fn steps) start(ctx context.Context, done func(error, any)) {
	v, err := fn(ctx, func(t Task) (any, error) { return Await(ctx, t) })
	done(err, v)
}

// Steps wraps a multi-step function that waits on sub-tasks through yield.
// Yielding All or Map waits on several sub-tasks at once.
func Steps(fn func(ctx context.Context, yield Yield) (any, error)) Task { return steps(fn) }

// All runs tasks concurrently and completes with their results as a []any
// in the order given, or with the first error.
func All(tasks ...Task) Task {
	return Func(func(ctx context.Context) (any, error) {
		return New().Push(tasks...).End(ctx)
	})
}

// Map runs the tasks concurrently and completes with a map of their results.
func Map(tasks map[string]Task) Task {
	keys := make([]string, 0, len(tasks))
	for k := range tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Func(func(ctx context.Context) (any, error) {
		b := New()
		for _, k := range keys {
			b.Push(tasks[k])
		}
		values, err := b.End(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k] = values[i]
		}
		return out, nil
	})
}

// Completion is a callback that fires at most once.
type Completion struct {
	fired atomic.Bool
	fn    func(err error, v any)
}

func NewCompletion(fn func(err error, v any)) *Completion {
	return &Completion{fn: fn}
}

// Fire calls the wrapped callback unless it already ran, and reports
// whether this call was the one that fired it.
func (c *Completion) Fire(err error, v any) bool {
	if !c.fired.CompareAndSwap(false, true) {
		return false
	}
	if c.fn != nil {
		c.fn(err, v)
	}
	return true
}

func (c *Completion) Fired() bool { return c.fired.Load() }

// Invoke starts t and calls done exactly once with its outcome. A panic
// raised while starting t is reported to done as an error wrapping ErrPanic.
func Invoke(ctx context.Context, t Task, done func(err error, v any)) {
	c := NewCompletion(done)
	defer func() {
		if r := recover(); r != nil {
			c.Fire(fmt.Errorf("%w: %v", ErrPanic, r), nil)
		}
	}()
	if t == nil {
		c.Fire(nil, nil)
		return
	}
	t.start(ctx, func(err error, v any) { c.Fire(err, v) })
}

type outcome struct {
	v   any
	err error
}

// Await invokes t and blocks until it completes or ctx is done.
func Await(ctx context.Context, t Task) (any, error) {
	ch := make(chan outcome, 1)
	Invoke(ctx, t, func(err error, v any) { ch <- outcome{v, err} })
	select {
	case o := <-ch:
		return o.v, o.err
	default:
	}
	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
