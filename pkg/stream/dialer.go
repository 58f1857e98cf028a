package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/fldash/pkg/mqtt"
	"github.com/google/uuid"
)

const (
	TransportSocketIO  = "socketio"
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
)

var ErrUnknownTransport = errors.New("unknown stream transport")

type Config struct {
	Transport string
	// SocketURL is the coordinator address for Socket.IO and the full
	// endpoint for raw WebSocket.
	SocketURL         string
	ReconnectAttempts uint
	MQTT              mqtt.Config
	TopicPrefix       string
}

// NewDialer picks the push transport by name.
func NewDialer(cfg Config, logger *slog.Logger) (Dialer, error) {
	switch cfg.Transport {
	case TransportSocketIO:
		if _, err := SocketIOURL(cfg.SocketURL); err != nil {
			return nil, err
		}

		return SocketIODialer(SocketIOConfig{
			URL:               cfg.SocketURL,
			ReconnectAttempts: cfg.ReconnectAttempts,
		}, logger), nil
	case TransportWebSocket:
		return WebSocketDialer(cfg.SocketURL, logger), nil
	case TransportMQTT:
		return MQTTDialer(cfg.MQTT, cfg.TopicPrefix, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}

// MQTTDialer connects a fresh MQTT client on every dial so that each view
// owns its own session. When cfg.ID is empty a readable unique id is
// generated.
func MQTTDialer(cfg mqtt.Config, prefix string, logger *slog.Logger) Dialer {
	return func(_ context.Context) (Stream, error) {
		c := cfg
		if c.ID == "" {
			c.ID = ClientName()
		}

		sub, err := mqtt.NewSubscriber(c, logger)
		if err != nil {
			return nil, err
		}

		return NewMQTT(sub, prefix), nil
	}
}

// ClientName returns a readable id that is unique per call.
func ClientName() string {
	return fmt.Sprintf("fldash-%s-%s", namegenerator.NewGenerator().Generate(), uuid.NewString()[:8])
}
