package job

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// ErrNoClass is returned when enqueuing a job without a class name
	ErrNoClass = errors.New("job class name is required")

	// ErrNoQueue is returned when enqueuing a job without a queue name
	ErrNoQueue = errors.New("job queue name is required")

	// ErrInvalidPayload is returned when a queued payload cannot be decoded
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrDontPerform aborts a job quietly when returned from SetUp, Perform
	// or TearDown. The job is neither completed nor failed.
	ErrDontPerform = errors.New("do not perform job")
)

// ResolutionError is returned when a payload's class cannot be turned into
// a runnable instance.
type ResolutionError struct {
	Class  string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not resolve job class %q: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("could not resolve job class %q: %s", e.Class, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking job together with the
// goroutine stack at the point of recovery.
type PanicError struct {
	Value any
	Stack []string
}

// NewPanicError captures the current stack for the recovered value.
func NewPanicError(v any) *PanicError {
	lines := strings.Split(strings.TrimSpace(string(debug.Stack())), "\n")
	frames := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			frames = append(frames, l)
		}
	}
	return &PanicError{Value: v, Stack: frames}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// StackTrace returns the captured stack frames.
func (e *PanicError) StackTrace() []string {
	return e.Stack
}
