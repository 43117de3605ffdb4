// Package event dispatches job lifecycle hooks to registered observers.
//
// A Bus is built at startup and shared by the enqueue service and the worker.
// Handlers run synchronously, in registration order, on the caller's
// goroutine. The first handler error stops dispatch and is returned to the
// caller. Registration must be finished before the bus is used; the bus does
// not lock during dispatch.
package event

import (
	"context"

	"github.com/cuongbtq/resque-go/internal/job"
)

// Handler signatures for each hook.
type (
	BeforePerformFunc func(ctx context.Context, j *job.Job) error
	AfterPerformFunc  func(ctx context.Context, j *job.Job) error
	FailureFunc       func(ctx context.Context, err error, j *job.Job) error
	SkipFunc          func(ctx context.Context, j *job.Job) error
	AfterEnqueueFunc  func(ctx context.Context, class string, args []any, queue string) error
)

// Observer interfaces recognised by Subscribe.
type (
	BeforePerformObserver interface {
		BeforePerform(ctx context.Context, j *job.Job) error
	}
	AfterPerformObserver interface {
		AfterPerform(ctx context.Context, j *job.Job) error
	}
	FailureObserver interface {
		OnFailure(ctx context.Context, err error, j *job.Job) error
	}
	SkipObserver interface {
		OnSkip(ctx context.Context, j *job.Job) error
	}
	AfterEnqueueObserver interface {
		AfterEnqueue(ctx context.Context, class string, args []any, queue string) error
	}
)

// Bus holds the handlers for every hook.
type Bus struct {
	beforePerform []BeforePerformFunc
	afterPerform  []AfterPerformFunc
	failure       []FailureFunc
	skip          []SkipFunc
	afterEnqueue  []AfterEnqueueFunc
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnBeforePerform(fn BeforePerformFunc) { b.beforePerform = append(b.beforePerform, fn) }
func (b *Bus) OnAfterPerform(fn AfterPerformFunc)   { b.afterPerform = append(b.afterPerform, fn) }
func (b *Bus) OnFailure(fn FailureFunc)             { b.failure = append(b.failure, fn) }
func (b *Bus) OnSkip(fn SkipFunc)                   { b.skip = append(b.skip, fn) }
func (b *Bus) OnAfterEnqueue(fn AfterEnqueueFunc)   { b.afterEnqueue = append(b.afterEnqueue, fn) }

// Subscribe registers every hook o implements. Hooks keep registration order
// across Subscribe and the On* methods.
func (b *Bus) Subscribe(o any) {
	if h, ok := o.(BeforePerformObserver); ok {
		b.OnBeforePerform(h.BeforePerform)
	}
	if h, ok := o.(AfterPerformObserver); ok {
		b.OnAfterPerform(h.AfterPerform)
	}
	if h, ok := o.(FailureObserver); ok {
		b.OnFailure(h.OnFailure)
	}
	if h, ok := o.(SkipObserver); ok {
		b.OnSkip(h.OnSkip)
	}
	if h, ok := o.(AfterEnqueueObserver); ok {
		b.OnAfterEnqueue(h.AfterEnqueue)
	}
}

// BeforePerform runs the before-perform handlers.
func (b *Bus) BeforePerform(ctx context.Context, j *job.Job) error {
	if b == nil {
		return nil
	}
	for _, fn := range b.beforePerform {
		if err := fn(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// AfterPerform runs the after-perform handlers.
func (b *Bus) AfterPerform(ctx context.Context, j *job.Job) error {
	if b == nil {
		return nil
	}
	for _, fn := range b.afterPerform {
		if err := fn(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// Failure runs the failure handlers with the job's error.
func (b *Bus) Failure(ctx context.Context, jobErr error, j *job.Job) error {
	if b == nil {
		return nil
	}
	for _, fn := range b.failure {
		if err := fn(ctx, jobErr, j); err != nil {
			return err
		}
	}
	return nil
}

// Skip runs the skip handlers for a job that asked not to be performed.
func (b *Bus) Skip(ctx context.Context, j *job.Job) error {
	if b == nil {
		return nil
	}
	for _, fn := range b.skip {
		if err := fn(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// AfterEnqueue runs the after-enqueue handlers.
func (b *Bus) AfterEnqueue(ctx context.Context, class string, args []any, queue string) error {
	if b == nil {
		return nil
	}
	for _, fn := range b.afterEnqueue {
		if err := fn(ctx, class, args, queue); err != nil {
			return err
		}
	}
	return nil
}
