package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const readLimit = 1 << 20

// Envelope is the frame the coordinator sends for every event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsStream struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool
}

// DialWebSocket connects to url and starts reading frames. Frames for events
// with no subscribed handler are dropped. A read failure ends the stream and
// closes Done; raw WebSocket has no reconnect of its own.
func DialWebSocket(ctx context.Context, url string, logger *slog.Logger) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)

	readCtx, cancel := context.WithCancel(context.Background())
	s := &wsStream{
		conn:     conn,
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   logger,
		handlers: make(map[string]Handler),
	}
	go s.read(readCtx)

	return s, nil
}

// WebSocketDialer binds DialWebSocket to a fixed url.
func WebSocketDialer(url string, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Stream, error) {
		return DialWebSocket(ctx, url, logger)
	}
}

func (s *wsStream) Subscribe(_ context.Context, event string, h Handler) error {
	if event == "" {
		return errEmptyEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h

	return nil
}

func (s *wsStream) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.conn.Close(websocket.StatusNormalClosure, "view closed")
	s.cancel()
	if err != nil {
		_ = s.conn.CloseNow()
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}

	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

func (s *wsStream) Connected() bool {
	select {
	case <-s.done:
		return false
	default:
		return !s.isClosed()
	}
}

func (s *wsStream) Done() <-chan struct{} {
	return s.done
}

func (s *wsStream) read(ctx context.Context) {
	defer close(s.done)

	for {
		var env Envelope
		if err := wsjson.Read(ctx, s.conn, &env); err != nil {
			if ctx.Err() == nil && !s.isClosed() {
				s.logger.Warn("WebSocket stream stopped", slog.Any("error", err))
			}

			return
		}

		s.mu.RLock()
		h, ok := s.handlers[env.Event]
		closed := s.closed
		s.mu.RUnlock()
		if closed {
			return
		}
		if !ok {
			s.logger.Debug("Dropping unsubscribed event", slog.String("event", env.Event))

			continue
		}

		if err := h(env.Event, env.Data); err != nil {
			s.logger.Warn("Failed to handle stream event", slog.String("event", env.Event), slog.Any("error", err))
		}
	}
}

func (s *wsStream) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}
