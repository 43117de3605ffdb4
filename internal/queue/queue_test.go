package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/resque-go/internal/event"
	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/status"
	"github.com/cuongbtq/resque-go/internal/testutil"
)

func setupService(t *testing.T, bus *event.Bus) (*Service, func(key string) bool) {
	t.Helper()
	s, mr := testutil.NewRedisStore(t)
	return NewService(s, bus, testutil.DiscardLogger()), mr.Exists
}

func TestEnqueueReserve_FIFOSingleConsumption(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	j, err := svc.Reserve(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, j)

	ok, err := svc.Create(ctx, "q", "Foo", []any{1, 2}, false)
	require.NoError(t, err)
	assert.True(t, ok)

	j, err = svc.Reserve(ctx, "q")
	require.NoError(t, err)
	require.NotNil(t, j)
	require.NoError(t, j.Err())
	assert.Equal(t, "q", j.Queue)
	assert.Equal(t, "Foo", j.Class())
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, j.Args())
	assert.False(t, j.IsMonitored())

	j, err = svc.Reserve(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestEnqueue_Validation(t *testing.T) {
	tests := []struct {
		name    string
		queue   string
		class   string
		wantErr error
	}{
		{name: "empty class", queue: "q", class: "", wantErr: job.ErrNoClass},
		{name: "empty queue", queue: "", class: "Foo", wantErr: job.ErrNoQueue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, exists := setupService(t, nil)
			ok, err := svc.Create(context.Background(), tt.queue, tt.class, nil, true)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, ok)
			assert.False(t, exists("resque:queues"))
		})
	}
}

func TestEnqueue_Monitored(t *testing.T) {
	svc, exists := setupService(t, nil)
	ctx := context.Background()

	p, err := svc.Enqueue(ctx, "q", "Foo", nil, true)
	require.NoError(t, err)
	assert.Len(t, p.ID, 32)
	assert.True(t, exists("resque:job:"+p.ID+":status"))

	st, ok := status.New(svc.Store(), p.ID).Get(ctx)
	require.True(t, ok)
	assert.Equal(t, status.Waiting, st)

	j, err := svc.Reserve(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, p.ID, j.ID())
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Len(t, id, 32)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestEnqueue_AfterEnqueueEvent(t *testing.T) {
	bus := event.NewBus()
	var gotClass, gotQueue string
	bus.OnAfterEnqueue(func(ctx context.Context, class string, args []any, queue string) error {
		gotClass, gotQueue = class, queue
		return nil
	})
	svc, _ := setupService(t, bus)

	_, err := svc.Create(context.Background(), "mail", "Deliver", []any{"a@b.c"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Deliver", gotClass)
	assert.Equal(t, "mail", gotQueue)
}

func TestEnqueue_ObserverErrorReturned(t *testing.T) {
	bus := event.NewBus()
	errObserver := errors.New("observer")
	bus.OnAfterEnqueue(func(context.Context, string, []any, string) error { return errObserver })
	svc, _ := setupService(t, bus)

	ok, err := svc.Create(context.Background(), "q", "Foo", nil, false)
	assert.ErrorIs(t, err, errObserver)
	assert.False(t, ok)

	size, err := svc.Size(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestEnqueue_StoreErrorPropagates(t *testing.T) {
	s, mr := testutil.NewRedisStore(t)
	svc := NewService(s, nil, testutil.DiscardLogger())
	mr.Close()

	_, err := svc.Create(context.Background(), "q", "Foo", nil, false)
	assert.Error(t, err)
}

func TestReserve_FirstMatchOrder(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "low", "Low", nil, false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "high", "High", nil, false)
	require.NoError(t, err)

	j, err := svc.Reserve(ctx, "high", "low")
	require.NoError(t, err)
	assert.Equal(t, "High", j.Class())

	j, err = svc.Reserve(ctx, "high", "low")
	require.NoError(t, err)
	assert.Equal(t, "Low", j.Class())
}

func TestReserve_WildcardPicksUpNewQueues(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	j, err := svc.Reserve(ctx, Wildcard)
	require.NoError(t, err)
	assert.Nil(t, j)

	_, err = svc.Create(ctx, "fresh", "Foo", nil, false)
	require.NoError(t, err)

	j, err = svc.Reserve(ctx, Wildcard)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "fresh", j.Queue)
}

func TestReserve_ConcurrentNeverDuplicates(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	const total = 50
	for i := 0; i < total; i++ {
		_, err := svc.Create(ctx, "q", "Foo", []any{i}, false)
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				j, err := svc.Reserve(ctx, "q")
				if err != nil || j == nil {
					return
				}
				mu.Lock()
				seen[j.Raw()]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for raw, n := range seen {
		assert.Equal(t, 1, n, raw)
	}
}

func TestInspection(t *testing.T) {
	svc, exists := setupService(t, nil)
	ctx := context.Background()

	for _, class := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, "q", class, nil, false)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "other", "D", nil, false)
	require.NoError(t, err)

	queues, err := svc.Queues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "q"}, queues)

	size, err := svc.Size(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	peeked, err := svc.Peek(ctx, "q", 1, 5)
	require.NoError(t, err)
	require.Len(t, peeked, 2)
	assert.Equal(t, "B", peeked[0].Class())

	size, err = svc.Size(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	require.NoError(t, svc.RemoveQueue(ctx, "q"))
	assert.False(t, exists("resque:queue:q"))

	queues, err = svc.Queues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, queues)
}

func TestRecreate(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	original, err := svc.Enqueue(ctx, "q", "Foo", []any{"x"}, true)
	require.NoError(t, err)
	j, err := svc.Reserve(ctx, "q")
	require.NoError(t, err)

	copied, err := svc.Recreate(ctx, j)
	require.NoError(t, err)
	assert.NotEmpty(t, copied.ID)
	assert.NotEqual(t, original.ID, copied.ID)

	require.NoError(t, status.New(svc.Store(), original.ID).Stop(ctx))
	untracked, err := svc.Recreate(ctx, j)
	require.NoError(t, err)
	assert.Empty(t, untracked.ID)

	size, err := svc.Size(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}
