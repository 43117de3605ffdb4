// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/resque-go/internal/store"
)

// NewRedisStore starts an in-process Redis server and returns a namespaced
// store bound to it. Both are torn down when the test ends.
func NewRedisStore(t testing.TB) (*store.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return store.NewRedis(client, store.WithLogger(DiscardLogger())), mr
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
