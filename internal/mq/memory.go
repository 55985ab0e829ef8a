package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend delivers messages to subscribers in the same process. It
// backs tests and single-process runs that still want events.
type MemoryBackend struct {
	mu     sync.Mutex
	subs   map[string][]chan Message
	closed bool
}

// NewMemoryBackend constructs an empty in-process broker.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{subs: make(map[string][]chan Message)}
}

// Publish fans the message out to every current subscriber of channel.
// Slow subscribers drop messages rather than block the publisher.
func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", errors.New("memory broker closed")
	}
	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}
	for _, ch := range m.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe blocks, handing messages to handler until ctx is done or the
// broker is closed.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, 64)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("memory broker closed")
	}
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()

	defer m.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, msg)
		}
	}
}

func (m *MemoryBackend) unsubscribe(channel string, ch chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[channel]
	for i, c := range subs {
		if c == ch {
			m.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Close stops every subscriber.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, subs := range m.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	m.subs = map[string][]chan Message{}
	return nil
}

// Subscribers reports how many subscribers channel currently has.
func (m *MemoryBackend) Subscribers(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[channel])
}
