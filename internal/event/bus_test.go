package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/resque-go/internal/job"
)

type recorder struct {
	name  string
	calls *[]string
}

func (r *recorder) BeforePerform(ctx context.Context, j *job.Job) error {
	*r.calls = append(*r.calls, r.name+":before")
	return nil
}

func (r *recorder) OnFailure(ctx context.Context, err error, j *job.Job) error {
	*r.calls = append(*r.calls, r.name+":failure:"+err.Error())
	return nil
}

func (r *recorder) OnSkip(ctx context.Context, j *job.Job) error {
	*r.calls = append(*r.calls, r.name+":skip:"+j.Class())
	return nil
}

func TestBus_DispatchOrder(t *testing.T) {
	var calls []string
	bus := NewBus()

	bus.OnBeforePerform(func(ctx context.Context, j *job.Job) error {
		calls = append(calls, "first:before")
		return nil
	})
	bus.Subscribe(&recorder{name: "second", calls: &calls})
	bus.OnBeforePerform(func(ctx context.Context, j *job.Job) error {
		calls = append(calls, "third:before")
		return nil
	})

	j := job.New("q", job.Payload{Class: "Foo"})
	require.NoError(t, bus.BeforePerform(context.Background(), j))
	require.NoError(t, bus.Failure(context.Background(), errors.New("boom"), j))
	require.NoError(t, bus.Skip(context.Background(), j))

	assert.Equal(t, []string{
		"first:before",
		"second:before",
		"third:before",
		"second:failure:boom",
		"second:skip:Foo",
	}, calls)
}

func TestBus_FirstErrorStopsDispatch(t *testing.T) {
	errObserver := errors.New("observer failed")
	var ran []string
	bus := NewBus()

	bus.OnAfterPerform(func(ctx context.Context, j *job.Job) error {
		ran = append(ran, "a")
		return errObserver
	})
	bus.OnAfterPerform(func(ctx context.Context, j *job.Job) error {
		ran = append(ran, "b")
		return nil
	})

	err := bus.AfterPerform(context.Background(), job.New("q", job.Payload{Class: "Foo"}))
	assert.ErrorIs(t, err, errObserver)
	assert.Equal(t, []string{"a"}, ran)
}

func TestBus_AfterEnqueue(t *testing.T) {
	bus := NewBus()
	var gotClass, gotQueue string
	var gotArgs []any

	bus.OnAfterEnqueue(func(ctx context.Context, class string, args []any, queue string) error {
		gotClass, gotArgs, gotQueue = class, args, queue
		return nil
	})

	require.NoError(t, bus.AfterEnqueue(context.Background(), "Foo", []any{1}, "high"))
	assert.Equal(t, "Foo", gotClass)
	assert.Equal(t, []any{1}, gotArgs)
	assert.Equal(t, "high", gotQueue)
}

func TestBus_NilBusIsNoop(t *testing.T) {
	var bus *Bus
	ctx := context.Background()
	j := job.New("q", job.Payload{Class: "Foo"})

	assert.NoError(t, bus.BeforePerform(ctx, j))
	assert.NoError(t, bus.AfterPerform(ctx, j))
	assert.NoError(t, bus.Failure(ctx, errors.New("x"), j))
	assert.NoError(t, bus.Skip(ctx, j))
	assert.NoError(t, bus.AfterEnqueue(ctx, "Foo", nil, "q"))
}
