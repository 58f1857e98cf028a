// Package stream carries the coordinator's named push events over either a
// Socket.IO connection, a raw WebSocket connection or MQTT topics.
package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/absmach/fldash/pkg/mqtt"
)

const (
	ServerUpdate  = "server_update"
	ClientsUpdate = "clients_update"
	LogsUpdate    = "logs_update"
)

var errEmptyEvent = errors.New("empty event name")

// Handler receives the raw JSON payload of one event.
type Handler func(event string, payload []byte) error

// Stream is one multiplexed connection to the coordinator. Close must be safe
// to call in any connection state and more than once.
type Stream interface {
	Subscribe(ctx context.Context, event string, h Handler) error
	Close(ctx context.Context) error
	// Connected is false while the transport is reconnecting and after the
	// stream has ended.
	Connected() bool
	// Done is closed once the stream delivers no more events, either because
	// it was closed or because the transport gave up.
	Done() <-chan struct{}
}

// Dialer opens a new Stream. Each view entry dials its own.
type Dialer func(ctx context.Context) (Stream, error)

type mqttStream struct {
	sub    mqtt.Subscriber
	prefix string

	done   chan struct{}

	mu     sync.Mutex
	topics []string
	closed bool
}

// NewMQTT maps every event onto the topic "<prefix>/<event>". The MQTT client
// reconnects on its own, so the stream only ends when it is closed.
func NewMQTT(sub mqtt.Subscriber, prefix string) Stream {
	return &mqttStream{sub: sub, prefix: prefix, done: make(chan struct{})}
}

func (s *mqttStream) Subscribe(ctx context.Context, event string, h Handler) error {
	if event == "" {
		return errEmptyEvent
	}

	topic := s.topic(event)
	if err := s.sub.Subscribe(ctx, topic, func(_ string, payload []byte) error {
		return h(event, payload)
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.topics = append(s.topics, topic)
	s.mu.Unlock()

	return nil
}

func (s *mqttStream) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}
	s.closed = true
	topics := s.topics
	s.topics = nil
	close(s.done)
	s.mu.Unlock()

	var errs []error
	for _, t := range topics {
		if err := s.sub.Unsubscribe(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.sub.Disconnect(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *mqttStream) Connected() bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	return !closed && s.sub.IsConnected()
}

func (s *mqttStream) Done() <-chan struct{} {
	return s.done
}

func (s *mqttStream) topic(event string) string {
	if s.prefix == "" {
		return event
	}

	return s.prefix + "/" + event
}
