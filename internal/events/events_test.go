package events

import (
	"context"
	"errors"
	"testing"

	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/internal/mq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	channel string
	data    [][]byte
	attrs   []map[string]string
	err     error
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.channel = channel
	b.data = append(b.data, data)
	b.attrs = append(b.attrs, attrs)
	return "id", nil
}

func (b *recordingBackend) Subscribe(context.Context, string, mq.Handler) error { return nil }

func (b *recordingBackend) Close() error { return nil }

func TestBusPublishesEnvelope(t *testing.T) {
	backend := &recordingBackend{}
	bus := NewBus(mq.New(backend), "kanban.events", nil)

	bus.Publish(context.Background(), BoardCreated, "boss-1", map[string]string{"name": "Sprint"})

	require.Len(t, backend.data, 1)
	assert.Equal(t, "kanban.events", backend.channel)
	assert.Equal(t, BoardCreated, backend.attrs[0]["type"])

	event, err := Decode(mq.Message{Data: backend.data[0]})
	require.NoError(t, err)
	assert.Equal(t, BoardCreated, event.Type)
	assert.Equal(t, "boss-1", event.ActorID)
	assert.NotEmpty(t, event.ID)
	assert.JSONEq(t, `{"name":"Sprint"}`, string(event.Data))
}

func TestBusSwallowsBrokerFailures(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	bus := NewBus(mq.New(&recordingBackend{err: errors.New("broker down")}), "kanban.events", m)

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), TaskMoved, "u1", nil)
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(TaskMoved, "error")))
}

func TestBusPublishesAfterCallerCancels(t *testing.T) {
	backend := &recordingBackend{}
	bus := NewBus(mq.New(backend), "kanban.events", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, TaskDeleted, "u1", nil)
	assert.Len(t, backend.data, 1)
}
