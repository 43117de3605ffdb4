package stat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/resque-go/internal/store"
	"github.com/cuongbtq/resque-go/internal/testutil"
)

func TestRegistry_Counters(t *testing.T) {
	s, mr := testutil.NewRedisStore(t)
	ctx := context.Background()
	r := New(s)

	got, err := r.Get(ctx, Processed)
	require.NoError(t, err)
	assert.Zero(t, got)

	v, err := r.Increment(ctx, Processed, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = r.Increment(ctx, Processed, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	v, err = r.Decrement(ctx, Processed)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	got, err = r.Get(ctx, Processed)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	raw, err := mr.Get("resque:stat:processed")
	require.NoError(t, err)
	assert.Equal(t, "5", raw)

	require.NoError(t, r.Clear(ctx, Processed))
	assert.False(t, mr.Exists("resque:stat:processed"))
}

func TestRegistry_GetUnparseable(t *testing.T) {
	s, mr := testutil.NewRedisStore(t)
	r := New(s)

	require.NoError(t, mr.Set("resque:stat:failed", "lots"))

	_, err := r.Get(context.Background(), Failed)
	assert.ErrorIs(t, err, store.ErrNotInteger)
}

func TestWorkerName(t *testing.T) {
	s, mr := testutil.NewRedisStore(t)
	r := New(s)

	_, err := r.Increment(context.Background(), WorkerName(Failed, "host:1:q"), 1)
	require.NoError(t, err)

	assert.True(t, mr.Exists("resque:stat:failed:host:1:q"))
}
