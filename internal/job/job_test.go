package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/resque-go/internal/status"
	"github.com/cuongbtq/resque-go/internal/testutil"
)

func TestPayload_Encode(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    string
	}{
		{
			name:    "nil args encode as empty array",
			payload: Payload{Class: "Foo"},
			want:    `{"class":"Foo","args":[]}`,
		},
		{
			name:    "id omitted when empty",
			payload: Payload{Class: "Foo", Args: []any{1, "a"}},
			want:    `{"class":"Foo","args":[1,"a"]}`,
		},
		{
			name:    "id included when monitored",
			payload: Payload{Class: "Foo", Args: []any{}, ID: "abc"},
			want:    `{"class":"Foo","args":[],"id":"abc"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.payload.Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(`{"class":"Foo","args":[1,2,"x"],"id":"abc"}`)
	require.NoError(t, err)
	assert.Equal(t, "Foo", p.Class)
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, []any{json.Number("1"), json.Number("2"), "x"}, p.Args)

	_, err = DecodePayload(`not json`)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodePayload(`{"args":[]}`)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.ErrorIs(t, err, ErrNoClass)
}

func TestDecode_KeepsRawPayload(t *testing.T) {
	raw := `{"class":"Foo","args":[1]}`
	j := Decode("q", raw)

	require.NoError(t, j.Err())
	assert.Equal(t, "q", j.Queue)
	assert.Equal(t, raw, j.Raw())
	assert.False(t, j.IsMonitored())
	assert.JSONEq(t, raw, string(j.RawJSON()))
}

func TestDecode_InvalidPayloadStillYieldsJob(t *testing.T) {
	j := Decode("q", "garbage")

	require.Error(t, j.Err())
	assert.Equal(t, "garbage", j.Raw())
	assert.Equal(t, `"garbage"`, string(j.RawJSON()))
}

func TestJob_ArgsAreCopied(t *testing.T) {
	j := New("q", Payload{Class: "Foo", Args: []any{"a", "b"}})

	args := j.Args()
	args[0] = "mutated"

	assert.Equal(t, []any{"a", "b"}, j.Payload.Args)
}

func TestJob_String(t *testing.T) {
	tests := []struct {
		name string
		job  *Job
		want string
	}{
		{
			name: "unmonitored",
			job:  New("high", Payload{Class: "Foo", Args: []any{1, "a"}}),
			want: `(Job{high}|Foo|[1,"a"])`,
		},
		{
			name: "monitored",
			job:  New("low", Payload{Class: "Bar", Args: []any{}, ID: "abc"}),
			want: `(Job{low}|ID: abc|Bar|[])`,
		},
		{
			name: "no args",
			job:  New("low", Payload{Class: "Baz"}),
			want: `(Job{low}|Baz)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.String())
		})
	}
}

func TestJob_Status(t *testing.T) {
	s, _ := testutil.NewRedisStore(t)
	ctx := context.Background()

	unmonitored := New("q", Payload{Class: "Foo"})
	_, ok := unmonitored.Status(ctx, s)
	assert.False(t, ok)
	require.NoError(t, unmonitored.UpdateStatus(ctx, s, status.Running))

	require.NoError(t, status.Create(ctx, s, "id1"))
	monitored := New("q", Payload{Class: "Foo", ID: "id1"})

	st, ok := monitored.Status(ctx, s)
	require.True(t, ok)
	assert.Equal(t, status.Waiting, st)

	require.NoError(t, monitored.UpdateStatus(ctx, s, status.Running))
	st, _ = monitored.Status(ctx, s)
	assert.Equal(t, status.Running, st)
}

func TestPanicError(t *testing.T) {
	cause := errors.New("boom")
	perr := NewPanicError(cause)

	assert.Equal(t, "panic: boom", perr.Error())
	assert.ErrorIs(t, perr, cause)
	assert.NotEmpty(t, perr.StackTrace())

	plain := NewPanicError("oops")
	assert.Nil(t, plain.Unwrap())
}
