package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO v5 packet types, carried in Engine.IO message packets.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

const (
	DefReconnectAttempts = 10
	DefReconnectDelay    = time.Second
	DefReconnectDelayMax = 5 * time.Second

	socketIOPath     = "/socket.io/"
	reconnectJitter  = 0.5
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	defIdleTimeout   = 45 * time.Second
)

var (
	ErrHandshake = errors.New("socket.io handshake failed")

	errUnsupportedScheme = errors.New("unsupported socket url scheme")
	errServerClosed      = errors.New("server closed the socket.io session")
	errMalformedPacket   = errors.New("malformed socket.io packet")
)

type SocketIOConfig struct {
	// URL is the coordinator address, e.g. http://localhost:5000.
	URL               string
	ReconnectAttempts uint
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
}

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// idle is how long the session may stay silent before the server is
// considered gone.
func (o openPacket) idle() time.Duration {
	d := time.Duration(o.PingInterval+o.PingTimeout) * time.Millisecond
	if d <= 0 {
		return defIdleTimeout
	}

	return d
}

type sioStream struct {
	cfg    SocketIOConfig
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	conn     *websocket.Conn
	handlers map[string]Handler
	closed   bool
}

// SocketIOURL turns a coordinator address into its Socket.IO WebSocket
// endpoint. A URL that already carries a path keeps it.
func SocketIOURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedScheme, u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = socketIOPath
	}

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// DialSocketIO joins the default namespace of a Socket.IO server. A dropped
// session is re-established with exponential backoff; Done closes once the
// stream is closed or every reconnect attempt has failed. Handlers survive
// reconnects.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig, logger *slog.Logger) (Stream, error) {
	endpoint, err := SocketIOURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.URL = endpoint
	if cfg.ReconnectAttempts == 0 {
		cfg.ReconnectAttempts = DefReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefReconnectDelay
	}
	if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
		cfg.ReconnectDelayMax = max(DefReconnectDelayMax, cfg.ReconnectDelay)
	}

	conn, open, err := handshake(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &sioStream{
		cfg:      cfg,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
		conn:     conn,
		handlers: make(map[string]Handler),
	}
	go s.run(runCtx, conn, open)

	return s, nil
}

// SocketIODialer binds DialSocketIO to a fixed config.
func SocketIODialer(cfg SocketIOConfig, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Stream, error) {
		return DialSocketIO(ctx, cfg, logger)
	}
}

func (s *sioStream) Subscribe(_ context.Context, event string, h Handler) error {
	if event == "" {
		return errEmptyEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h

	return nil
}

func (s *sioStream) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	var err error
	if conn != nil {
		_ = conn.Write(ctx, websocket.MessageText, []byte{eioMessage, sioDisconnect})
		err = conn.Close(websocket.StatusNormalClosure, "view closed")
		if err != nil {
			_ = conn.CloseNow()
		}
	}
	s.cancel()

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

func (s *sioStream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.closed && s.conn != nil
}

func (s *sioStream) Done() <-chan struct{} {
	return s.done
}

func (s *sioStream) run(ctx context.Context, conn *websocket.Conn, open openPacket) {
	defer close(s.done)

	for {
		err := s.serve(ctx, conn, open)
		if ctx.Err() != nil || !s.swap(conn, nil) {
			return
		}
		_ = conn.CloseNow()
		s.logger.Warn("Socket.IO session lost, reconnecting", slog.Any("error", err))

		conn, open, err = s.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("Socket.IO reconnect gave up", slog.Any("error", err))
			}

			return
		}
		if !s.swap(nil, conn) {
			_ = conn.CloseNow()

			return
		}
		s.logger.Info("Socket.IO session re-established", slog.String("sid", open.SID))
	}
}

// swap replaces the live connection unless the stream was closed.
func (s *sioStream) swap(old, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.conn != old {
		return false
	}
	s.conn = conn

	return true
}

func (s *sioStream) reconnect(ctx context.Context) (*websocket.Conn, openPacket, error) {
	type session struct {
		conn *websocket.Conn
		open openPacket
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReconnectDelay
	b.MaxInterval = s.cfg.ReconnectDelayMax
	b.RandomizationFactor = reconnectJitter

	sess, err := backoff.Retry(ctx, func() (session, error) {
		conn, open, err := handshake(ctx, s.cfg.URL)
		if err != nil {
			s.logger.Debug("Socket.IO reconnect attempt failed", slog.Any("error", err))

			return session{}, err
		}

		return session{conn: conn, open: open}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.cfg.ReconnectAttempts))
	if err != nil {
		return nil, openPacket{}, err
	}

	return sess.conn, sess.open, nil
}

func (s *sioStream) serve(ctx context.Context, conn *websocket.Conn, open openPacket) error {
	for {
		readCtx, cancel := context.WithTimeout(ctx, open.idle())
		typ, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			return err
		}
		if typ != websocket.MessageText || len(data) == 0 {
			continue
		}

		switch data[0] {
		case eioPing:
			if err := write(ctx, conn, []byte{eioPong}); err != nil {
				return err
			}
		case eioClose:
			return errServerClosed
		case eioMessage:
			if err := s.handlePacket(data[1:]); err != nil {
				return err
			}
		}
	}
}

func (s *sioStream) handlePacket(pkt []byte) error {
	if len(pkt) == 0 {
		return nil
	}

	switch pkt[0] {
	case sioEvent:
		event, payload, err := decodeEvent(pkt[1:])
		if err != nil {
			s.logger.Warn("Dropping malformed Socket.IO event", slog.Any("error", err))

			return nil
		}
		s.dispatch(event, payload)
	case sioDisconnect:
		return errServerClosed
	case sioConnectError:
		return fmt.Errorf("%w: %s", ErrHandshake, pkt[1:])
	}

	return nil
}

func (s *sioStream) dispatch(event string, payload []byte) {
	s.mu.RLock()
	h, ok := s.handlers[event]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}
	if !ok {
		s.logger.Debug("Dropping unsubscribed event", slog.String("event", event))

		return
	}

	if err := h(event, payload); err != nil {
		s.logger.Warn("Failed to handle stream event", slog.String("event", event), slog.Any("error", err))
	}
}

// decodeEvent reads the body of an EVENT packet: an optional namespace, an
// optional ack id and a JSON array of the event name followed by its data.
func decodeEvent(body []byte) (string, json.RawMessage, error) {
	str := string(body)
	if strings.HasPrefix(str, "/") {
		i := strings.IndexByte(str, ',')
		if i < 0 {
			return "", nil, errMalformedPacket
		}
		str = str[i+1:]
	}
	str = strings.TrimLeft(str, "0123456789")

	var args []json.RawMessage
	if err := json.Unmarshal([]byte(str), &args); err != nil {
		return "", nil, errors.Join(errMalformedPacket, err)
	}
	if len(args) == 0 {
		return "", nil, errMalformedPacket
	}

	var event string
	if err := json.Unmarshal(args[0], &event); err != nil || event == "" {
		return "", nil, errMalformedPacket
	}
	if len(args) == 1 {
		return event, json.RawMessage("null"), nil
	}

	return event, args[1], nil
}

// handshake opens the WebSocket, reads the Engine.IO open packet and joins
// the default namespace.
func handshake(ctx context.Context, endpoint string) (*websocket.Conn, openPacket, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, openPacket{}, err
	}
	conn.SetReadLimit(readLimit)

	open, err := join(ctx, conn)
	if err != nil {
		_ = conn.CloseNow()

		return nil, openPacket{}, err
	}

	return conn, open, nil
}

func join(ctx context.Context, conn *websocket.Conn) (openPacket, error) {
	var open openPacket

	_, data, err := conn.Read(ctx)
	if err != nil {
		return open, err
	}
	if len(data) == 0 || data[0] != eioOpen {
		return open, fmt.Errorf("%w: expected open packet, got %q", ErrHandshake, data)
	}
	if err := json.Unmarshal(data[1:], &open); err != nil {
		return open, errors.Join(ErrHandshake, err)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte{eioMessage, sioConnect}); err != nil {
		return open, err
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return open, err
		}

		switch {
		case len(data) == 1 && data[0] == eioPing:
			if err := conn.Write(ctx, websocket.MessageText, []byte{eioPong}); err != nil {
				return open, err
			}
		case len(data) >= 2 && data[0] == eioMessage && data[1] == sioConnect:
			return open, nil
		case len(data) >= 2 && data[0] == eioMessage && data[1] == sioConnectError:
			return open, fmt.Errorf("%w: %s", ErrHandshake, data[2:])
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, data)
}
