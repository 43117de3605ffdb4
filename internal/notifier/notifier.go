// Package notifier publishes job lifecycle events to a message broker.
//
// A Notifier is subscribed to the event bus. Publishing is best effort: a
// broker error is logged and never fails the job or the enqueue.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cuongbtq/resque-go/internal/job"
)

// Event names, appended to the routing key prefix.
const (
	EventEnqueued  = "job.enqueued"
	EventCompleted = "job.completed"
	EventFailed    = "job.failed"
)

// Publisher sends a message body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Message is the JSON body of every published event.
type Message struct {
	Event      string    `json:"event"`
	Queue      string    `json:"queue"`
	Class      string    `json:"class"`
	Args       []any     `json:"args"`
	JobID      string    `json:"job_id,omitempty"`
	Worker     string    `json:"worker,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier turns bus events into broker messages.
type Notifier struct {
	publisher Publisher
	prefix    string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a notifier publishing under prefix, e.g. "resque" yields
// routing keys like "resque.job.failed".
func New(publisher Publisher, prefix string, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		prefix:    prefix,
		logger:    logger,
		now:       time.Now,
	}
}

// RoutingKey returns the routing key for event.
func (n *Notifier) RoutingKey(event string) string {
	if n.prefix == "" {
		return event
	}
	return n.prefix + "." + event
}

func (n *Notifier) AfterEnqueue(ctx context.Context, class string, args []any, queue string) error {
	n.publish(ctx, Message{Event: EventEnqueued, Queue: queue, Class: class, Args: args})
	return nil
}

func (n *Notifier) AfterPerform(ctx context.Context, j *job.Job) error {
	n.publish(ctx, n.jobMessage(EventCompleted, j))
	return nil
}

func (n *Notifier) OnFailure(ctx context.Context, err error, j *job.Job) error {
	msg := n.jobMessage(EventFailed, j)
	if err != nil {
		msg.Error = err.Error()
	}
	n.publish(ctx, msg)
	return nil
}

func (n *Notifier) jobMessage(event string, j *job.Job) Message {
	return Message{
		Event:  event,
		Queue:  j.Queue,
		Class:  j.Class(),
		Args:   j.Args(),
		JobID:  j.ID(),
		Worker: j.Worker,
	}
}

func (n *Notifier) publish(ctx context.Context, msg Message) {
	msg.OccurredAt = n.now().UTC()
	if msg.Args == nil {
		msg.Args = []any{}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("Failed to marshal event",
			slog.String("event", msg.Event),
			slog.Any("error", err),
		)
		return
	}

	key := n.RoutingKey(msg.Event)
	if err := n.publisher.Publish(ctx, key, body); err != nil {
		n.logger.Error("Failed to publish event",
			slog.String("routing_key", key),
			slog.String("queue", msg.Queue),
			slog.String("class", msg.Class),
			slog.Any("error", err),
		)
	}
}
