package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addJob struct {
	Base
	result *int
}

func (a *addJob) Perform(ctx context.Context) error {
	sum := 0
	for _, v := range a.Args {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		sum += n
	}
	*a.result = sum
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	default:
		return 0, errors.New("not an int")
	}
}

type notAJob struct{}

func TestRegistry_Resolve(t *testing.T) {
	var result int
	r := NewRegistry()
	r.Register("Add", func() any { return &addJob{result: &result} })
	r.Register("Broken", func() any { return &notAJob{} })

	tests := []struct {
		name       string
		job        *Job
		wantReason string
	}{
		{name: "registered class", job: New("math", Payload{Class: "Add", Args: []any{1, 2}})},
		{name: "unknown class", job: New("math", Payload{Class: "Missing"}), wantReason: "class is not registered"},
		{name: "missing perform", job: New("math", Payload{Class: "Broken"}), wantReason: "class does not implement Perform"},
		{name: "undecodable payload", job: Decode("math", "{"), wantReason: "payload could not be decoded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(tt.job)
			if tt.wantReason == "" {
				require.NoError(t, err)
				require.NotNil(t, p)
				return
			}

			var rerr *ResolutionError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.wantReason, rerr.Reason)
			assert.Nil(t, p)
		})
	}
}

func TestRegistry_InjectsBackReferences(t *testing.T) {
	var result int
	r := NewRegistry()
	r.Register("Add", func() any { return &addJob{result: &result} })

	j := New("math", Payload{Class: "Add", Args: []any{3, 4}})
	p, err := r.Resolve(j)
	require.NoError(t, err)

	add := p.(*addJob)
	assert.Same(t, j, add.Job)
	assert.Equal(t, "math", add.Queue)
	assert.Equal(t, []any{3, 4}, add.Args)

	require.NoError(t, p.Perform(context.Background()))
	assert.Equal(t, 7, result)
}

func TestRegistry_FreshInstancePerResolve(t *testing.T) {
	var result int
	r := NewRegistry()
	r.Register("Add", func() any { return &addJob{result: &result} })

	a, err := r.Resolve(New("q", Payload{Class: "Add"}))
	require.NoError(t, err)
	b, err := r.Resolve(New("q", Payload{Class: "Add"}))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestRegistry_RegisterFunc(t *testing.T) {
	r := NewRegistry()
	var seen *Job
	r.RegisterFunc("Fn", func(ctx context.Context, j *Job) error {
		seen = j
		return nil
	})

	j := New("q", Payload{Class: "Fn"})
	p, err := r.Resolve(j)
	require.NoError(t, err)
	require.NoError(t, p.Perform(context.Background()))
	assert.Same(t, j, seen)
}

func TestRegistry_Classes(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("b", func(context.Context, *Job) error { return nil })
	r.RegisterFunc("a", func(context.Context, *Job) error { return nil })

	assert.Equal(t, []string{"a", "b"}, r.Classes())
}
