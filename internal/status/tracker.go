package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/resque-go/internal/store"
)

// Tracker reads and updates the status record of one job.
//
// Tracking is derived from the store on every call: a job is tracked while
// its status key exists. Nothing is cached, so a record that expires or is
// stopped is observed immediately.
type Tracker struct {
	store store.Store
	id    string
}

// New returns a Tracker for the job id.
func New(s store.Store, id string) *Tracker {
	return &Tracker{store: s, id: id}
}

// ID returns the job id.
func (t *Tracker) ID() string { return t.id }

// Key returns the store key of the status record.
func (t *Tracker) Key() string { return store.StatusKey(t.id) }

// IsTracking reports whether a status record currently exists.
func (t *Tracker) IsTracking(ctx context.Context) (bool, error) {
	return t.store.Exists(ctx, t.Key())
}

// Update moves the job to status. It is a no-op when the job is not
// tracked. Terminal statuses get TerminalTTL.
func (t *Tracker) Update(ctx context.Context, s Status) error {
	raw, ok, err := t.store.Get(ctx, t.Key())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	rec := Record{Status: s, Updated: time.Now().Unix()}
	var prev Record
	if json.Unmarshal([]byte(raw), &prev) == nil {
		rec.Started = prev.Started
	}

	if err := write(ctx, t.store, t.id, rec); err != nil {
		return err
	}

	if s.IsTerminal() {
		if err := t.store.Expire(ctx, t.Key(), TerminalTTL); err != nil {
			return fmt.Errorf("failed to expire status for job %s: %w", t.id, err)
		}
	}
	return nil
}

// Get returns the current status. The boolean is false when the job is not
// tracked, the record is missing, or it cannot be decoded; Get never fails.
func (t *Tracker) Get(ctx context.Context) (Status, bool) {
	rec, ok := t.Record(ctx)
	if !ok {
		return 0, false
	}
	return rec.Status, true
}

// Record returns the full status record with the same soft-fail semantics
// as Get.
func (t *Tracker) Record(ctx context.Context) (Record, bool) {
	raw, ok, err := t.store.Get(ctx, t.Key())
	if err != nil || !ok {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Status == 0 {
		return Record{}, false
	}
	return rec, true
}

// Stop deletes the status record.
func (t *Tracker) Stop(ctx context.Context) error {
	if err := t.store.Del(ctx, t.Key()); err != nil {
		return fmt.Errorf("failed to stop tracking job %s: %w", t.id, err)
	}
	return nil
}
