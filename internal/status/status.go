// Package status tracks the lifecycle of monitored jobs.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/resque-go/internal/store"
)

// Status is the lifecycle code of a monitored job.
type Status int

// Job status constants
const (
	Waiting  Status = 1
	Running  Status = 2
	Failed   Status = 3
	Complete Status = 4
)

// TerminalTTL is how long a Failed or Complete record survives.
const TerminalTTL = 24 * time.Hour

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == Failed || s == Complete
}

// Record is the persisted form of a status.
type Record struct {
	Status  Status `json:"status"`
	Started int64  `json:"started,omitempty"`
	Updated int64  `json:"updated"`
}

// Create writes a Waiting record for id.
func Create(ctx context.Context, s store.Store, id string) error {
	now := time.Now().Unix()
	return write(ctx, s, id, Record{Status: Waiting, Started: now, Updated: now})
}

func write(ctx context.Context, s store.Store, id string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := s.Set(ctx, store.StatusKey(id), string(data)); err != nil {
		return fmt.Errorf("failed to write status for job %s: %w", id, err)
	}
	return nil
}
