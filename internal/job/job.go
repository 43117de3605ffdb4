// Package job holds the unit-of-work model shared by producers and workers:
// the queued payload, the claimed job, and the class registry used to turn a
// payload into something that can run.
package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuongbtq/resque-go/internal/status"
	"github.com/cuongbtq/resque-go/internal/store"
)

// Payload is the serialized description of a job: {"class", "args", "id"}.
type Payload struct {
	Class string `json:"class"`
	Args  []any  `json:"args"`
	ID    string `json:"id,omitempty"`
}

// Encode renders the payload in its canonical JSON form. Nil args encode as
// an empty array.
func (p Payload) Encode() (string, error) {
	if p.Args == nil {
		p.Args = []any{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses a canonical payload. Numbers are kept as json.Number
// so integer arguments survive the round trip.
func DecodePayload(raw string) (Payload, error) {
	var p Payload
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Class == "" {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, ErrNoClass)
	}
	return p, nil
}

// Job is a payload claimed from a queue. It is owned by the goroutine
// executing it; Worker is set only for the duration of that execution.
type Job struct {
	Queue   string
	Payload Payload
	Worker  string

	raw       string
	decodeErr error
}

// New builds a job for a payload that has not been serialized yet.
func New(queue string, p Payload) *Job {
	return &Job{Queue: queue, Payload: p}
}

// Decode builds a job from a raw queued payload. A payload that fails to
// decode still yields a job so it can be reported as a failure; Err returns
// the decode error.
func Decode(queue, raw string) *Job {
	p, err := DecodePayload(raw)
	return &Job{Queue: queue, Payload: p, raw: raw, decodeErr: err}
}

// Err returns the payload decode error, if any.
func (j *Job) Err() error { return j.decodeErr }

// Class returns the payload class name.
func (j *Job) Class() string { return j.Payload.Class }

// ID returns the monitoring id, empty for unmonitored jobs.
func (j *Job) ID() string { return j.Payload.ID }

// IsMonitored reports whether the job carries a status id.
func (j *Job) IsMonitored() bool { return j.Payload.ID != "" }

// Args returns a copy of the decoded arguments.
func (j *Job) Args() []any {
	out := make([]any, len(j.Payload.Args))
	copy(out, j.Payload.Args)
	return out
}

// Raw returns the payload exactly as it was queued, or its canonical
// encoding when the job was built in-process.
func (j *Job) Raw() string {
	if j.raw != "" {
		return j.raw
	}
	s, err := j.Payload.Encode()
	if err != nil {
		return ""
	}
	return s
}

// RawJSON returns Raw as a JSON value. A raw payload that is not valid JSON
// is returned as a JSON string.
func (j *Job) RawJSON() json.RawMessage {
	raw := j.Raw()
	if json.Valid([]byte(raw)) {
		var buf bytes.Buffer
		if json.Compact(&buf, []byte(raw)) == nil {
			return buf.Bytes()
		}
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

// Status returns the current status of a monitored job.
func (j *Job) Status(ctx context.Context, s store.Store) (status.Status, bool) {
	if !j.IsMonitored() {
		return 0, false
	}
	return status.New(s, j.ID()).Get(ctx)
}

// UpdateStatus moves a monitored job to st. Unmonitored jobs are ignored.
func (j *Job) UpdateStatus(ctx context.Context, s store.Store, st status.Status) error {
	if !j.IsMonitored() {
		return nil
	}
	return status.New(s, j.ID()).Update(ctx, st)
}

func (j *Job) String() string {
	name := []string{"Job{" + j.Queue + "}"}
	if j.IsMonitored() {
		name = append(name, "ID: "+j.ID())
	}
	name = append(name, j.Class())
	if j.Payload.Args != nil {
		if args, err := json.Marshal(j.Payload.Args); err == nil {
			name = append(name, string(args))
		}
	}
	return "(" + strings.Join(name, "|") + ")"
}
