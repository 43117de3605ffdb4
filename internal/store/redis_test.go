package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, opts ...Option) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, opts...), mr
}

func TestRedis_Namespace(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantKey   string
		namespace string
	}{
		{
			name:      "default namespace",
			wantKey:   "resque:queues",
			namespace: "resque",
		},
		{
			name:      "custom namespace",
			opts:      []Option{WithNamespace("app")},
			wantKey:   "app:queues",
			namespace: "app",
		},
		{
			name:      "no namespace",
			opts:      []Option{WithNamespace("")},
			wantKey:   "queues",
			namespace: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mr := setupRedis(t, tt.opts...)
			require.NoError(t, s.SAdd(context.Background(), QueuesKey, "default"))

			assert.Equal(t, tt.namespace, s.Namespace())
			assert.True(t, mr.Exists(tt.wantKey))
		})
	}
}

func TestRedis_ListOperations(t *testing.T) {
	s, _ := setupRedis(t)
	ctx := context.Background()

	_, ok, err := s.LPop(ctx, QueueKey("empty"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RPush(ctx, QueueKey("q"), "a"))
	require.NoError(t, s.RPush(ctx, QueueKey("q"), "b"))

	n, err := s.LLen(ctx, QueueKey("q"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := s.LRange(ctx, QueueKey("q"), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)

	v, ok, err := s.LPop(ctx, QueueKey("q"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestRedis_StringOperations(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Expire(ctx, "k", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("resque:k"))

	require.NoError(t, s.Del(ctx, "k"))
	exists, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.Del(ctx))
}

func TestRedis_Counters(t *testing.T) {
	s, mr := setupRedis(t)
	ctx := context.Background()

	n, err := s.GetInt(ctx, StatKey("processed"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.IncrBy(ctx, StatKey("processed"), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = s.DecrBy(ctx, StatKey("processed"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, mr.Set("resque:stat:broken", "abc"))
	_, err = s.GetInt(ctx, StatKey("broken"))
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestRedis_StoreErrorsPropagate(t *testing.T) {
	s, mr := setupRedis(t)
	mr.Close()

	err := s.RPush(context.Background(), QueueKey("q"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to rpush")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "queue:mail", QueueKey("mail"))
	assert.Equal(t, "job:abc:status", StatusKey("abc"))
	assert.Equal(t, "worker:h:1:q", WorkerKey("h:1:q"))
	assert.Equal(t, "worker:h:1:q:started", WorkerStartedKey("h:1:q"))
	assert.Equal(t, "stat:failed", StatKey("failed"))
}
