package job

import (
	"context"
	"sort"
	"sync"
)

// Performer is the capability every job implementation must provide.
type Performer interface {
	Perform(ctx context.Context) error
}

// SetUpper is implemented by jobs that need to run something before Perform.
type SetUpper interface {
	SetUp(ctx context.Context) error
}

// TearDowner is implemented by jobs that need to run something after Perform.
type TearDowner interface {
	TearDown(ctx context.Context) error
}

// Binder receives the owning job, its queue and decoded args before the
// instance runs.
type Binder interface {
	Bind(j *Job)
}

// Base can be embedded in job implementations to receive the back-references.
type Base struct {
	Job   *Job
	Queue string
	Args  []any
}

// Bind implements Binder.
func (b *Base) Bind(j *Job) {
	b.Job = j
	b.Queue = j.Queue
	b.Args = j.Args()
}

// Factory builds a fresh instance for one execution. The result must
// implement Performer; anything else fails resolution.
type Factory func() any

// Func is a job implemented as a plain function.
type Func func(ctx context.Context, j *Job) error

type funcJob struct {
	Base
	fn Func
}

func (f *funcJob) Perform(ctx context.Context) error {
	return f.fn(ctx, f.Job)
}

// Registry maps class names to factories. It is filled at startup and read
// concurrently by workers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register maps class to factory, replacing any previous mapping.
func (r *Registry) Register(class string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[class] = factory
}

// RegisterFunc maps class to a function job.
func (r *Registry) RegisterFunc(class string, fn Func) {
	r.Register(class, func() any { return &funcJob{fn: fn} })
}

// Classes returns every registered class name, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the instance that will run j and injects its
// back-references.
func (r *Registry) Resolve(j *Job) (Performer, error) {
	if err := j.Err(); err != nil {
		return nil, &ResolutionError{Class: j.Class(), Reason: "payload could not be decoded", Err: err}
	}

	r.mu.RLock()
	factory, ok := r.factories[j.Class()]
	r.mu.RUnlock()
	if !ok || factory == nil {
		return nil, &ResolutionError{Class: j.Class(), Reason: "class is not registered"}
	}

	instance := factory()
	p, ok := instance.(Performer)
	if !ok {
		return nil, &ResolutionError{Class: j.Class(), Reason: "class does not implement Perform"}
	}

	if b, ok := instance.(Binder); ok {
		b.Bind(j)
	}
	return p, nil
}
