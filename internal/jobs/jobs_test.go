package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/testutil"
)

func resolve(t *testing.T, r *job.Registry, class string, args []any) job.Performer {
	t.Helper()
	p, err := r.Resolve(job.New("default", job.Payload{Class: class, Args: args}))
	require.NoError(t, err)
	return p
}

func TestRegister(t *testing.T) {
	r := job.NewRegistry()
	Register(r, testutil.DiscardLogger())

	assert.Equal(t, []string{EchoClass, SleepClass}, r.Classes())
}

func TestEcho_LogsArgs(t *testing.T) {
	var buf bytes.Buffer
	r := job.NewRegistry()
	Register(r, slog.New(slog.NewTextHandler(&buf, nil)))

	p := resolve(t, r, EchoClass, []any{"hello", json.Number("3")})
	require.NoError(t, p.Perform(context.Background()))

	assert.Contains(t, buf.String(), "msg=Echo")
	assert.Contains(t, buf.String(), "queue=default")
	assert.Contains(t, buf.String(), "hello")
}

func TestSleep_SetUp(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		want    time.Duration
		wantErr bool
	}{
		{name: "json number", args: []any{json.Number("0.5")}, want: 500 * time.Millisecond},
		{name: "float", args: []any{1.0}, want: time.Second},
		{name: "int", args: []any{2}, want: 2 * time.Second},
		{name: "zero", args: []any{0}, want: 0},
		{name: "missing", args: nil, wantErr: true},
		{name: "string", args: []any{"ten"}, wantErr: true},
		{name: "negative", args: []any{-1}, wantErr: true},
		{name: "too long", args: []any{json.Number("3600")}, wantErr: true},
	}

	r := job.NewRegistry()
	Register(r, testutil.DiscardLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := resolve(t, r, SleepClass, tt.args).(*Sleep)
			err := s.SetUp(context.Background())
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDuration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.duration)
		})
	}
}

func TestSleep_PerformHonoursContext(t *testing.T) {
	s := &Sleep{duration: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Perform(ctx), context.Canceled)
}

func TestSleep_PerformWaits(t *testing.T) {
	s := &Sleep{duration: 20 * time.Millisecond}

	start := time.Now()
	require.NoError(t, s.Perform(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
