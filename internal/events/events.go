// Package events publishes kanban domain events to the message queue.
//
// Publishing is best effort. A broker failure is logged and counted but
// never fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/internal/mq"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Event types.
const (
	UserSignedUp     = "user.signed_up"
	LicenceClaimed   = "licence.claimed"
	BoardCreated     = "board.created"
	BoardDeleted     = "board.deleted"
	BoardColumnAdded = "board.column_added"
	BoardExported    = "board.exported"
	TaskCreated      = "task.created"
	TaskUpdated      = "task.updated"
	TaskMoved        = "task.moved"
	TaskDeleted      = "task.deleted"
)

const (
	typeAttribute  = "type"
	publishTimeout = 5 * time.Second
)

// Event is the JSON envelope put on the wire.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ActorID    string          `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Publisher hands events to a broker.
type Publisher interface {
	Publish(ctx context.Context, eventType, actorID string, data any)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) {}

// Bus publishes events to one topic of an mq.MQ.
type Bus struct {
	queue   *mq.MQ
	topic   string
	metrics *metrics.Metrics
}

// NewBus constructs a Bus. metrics may be nil.
func NewBus(queue *mq.MQ, topic string, m *metrics.Metrics) *Bus {
	return &Bus{queue: queue, topic: topic, metrics: m}
}

// Publish encodes data and sends it. It detaches from ctx cancellation so a
// client hanging up after a successful write still produces the event.
func (b *Bus) Publish(ctx context.Context, eventType, actorID string, data any) {
	logger := log.WithField("event_type", eventType)

	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			logger.WithError(err).Warn("encode event payload")
			b.metrics.IncEventPublished(eventType, false)
			return
		}
		event.Data = raw
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Warn("encode event")
		b.metrics.IncEventPublished(eventType, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := b.queue.Publish(ctx, b.topic, body, map[string]string{typeAttribute: eventType}); err != nil {
		logger.WithError(err).WithField("topic", b.topic).Warn("publish event")
		b.metrics.IncEventPublished(eventType, false)
		return
	}
	b.metrics.IncEventPublished(eventType, true)
}

// Decode parses an event envelope read from the queue.
func Decode(msg mq.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
