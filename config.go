package fldash

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefCoordinatorURL = "http://localhost:5000/api"
	DefSocketURL      = "http://localhost:5000"
	DefTransport      = "socketio"
	DefMQTTAddress    = "tcp://localhost:1883"
	DefTopicPrefix    = "fl/dashboard"
	DefClientID       = "1"
	DefPollInterval   = "3s"
	DefMQTTTimeout    = "30s"
)

type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	MQTT        MQTTConfig        `toml:"mqtt"`
	Client      ClientConfig      `toml:"client"`
}

type CoordinatorConfig struct {
	URL       string `toml:"url"`
	SocketURL string `toml:"socket_url"`
	Transport string `toml:"transport"`
	// ReconnectAttempts bounds Socket.IO reconnects; zero uses the stream
	// default.
	ReconnectAttempts uint   `toml:"reconnect_attempts"`
	TLSVerification   bool   `toml:"tls_verification"`
	Timeout           string `toml:"timeout"`
}

type MQTTConfig struct {
	Address     string `toml:"address"`
	QoS         uint8  `toml:"qos"`
	ClientID    string `toml:"client_id"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Timeout     string `toml:"timeout"`
	TopicPrefix string `toml:"topic_prefix"`
}

type ClientConfig struct {
	ID           string `toml:"id"`
	PollInterval string `toml:"poll_interval"`
	HistorySize  int    `toml:"history_size"`
}

// DefaultConfig is used for every value a config file leaves out.
func DefaultConfig() Config {
	return Config{
		Coordinator: CoordinatorConfig{
			URL:       DefCoordinatorURL,
			SocketURL: DefSocketURL,
			Transport: DefTransport,
		},
		MQTT: MQTTConfig{
			Address:     DefMQTTAddress,
			QoS:         1,
			Timeout:     DefMQTTTimeout,
			TopicPrefix: DefTopicPrefix,
		},
		Client: ClientConfig{
			ID:           DefClientID,
			PollInterval: DefPollInterval,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.fill(DefaultConfig())

	if _, err := cfg.Coordinator.RequestTimeout(); err != nil {
		return nil, fmt.Errorf("invalid coordinator timeout: %w", err)
	}
	if _, err := cfg.MQTT.ConnTimeout(); err != nil {
		return nil, fmt.Errorf("invalid mqtt timeout: %w", err)
	}
	if _, err := cfg.Client.Interval(); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	return &cfg, nil
}

// RequestTimeout is zero when unset.
func (c CoordinatorConfig) RequestTimeout() (time.Duration, error) {
	return parseDuration(c.Timeout)
}

func (c MQTTConfig) ConnTimeout() (time.Duration, error) {
	return parseDuration(c.Timeout)
}

func (c ClientConfig) Interval() (time.Duration, error) {
	return parseDuration(c.PollInterval)
}

func (c *Config) fill(def Config) {
	setDefault(&c.Coordinator.URL, def.Coordinator.URL)
	setDefault(&c.Coordinator.SocketURL, def.Coordinator.SocketURL)
	setDefault(&c.Coordinator.Transport, def.Coordinator.Transport)
	setDefault(&c.MQTT.Address, def.MQTT.Address)
	setDefault(&c.MQTT.Timeout, def.MQTT.Timeout)
	setDefault(&c.MQTT.TopicPrefix, def.MQTT.TopicPrefix)
	setDefault(&c.Client.ID, def.Client.ID)
	setDefault(&c.Client.PollInterval, def.Client.PollInterval)
	if c.MQTT.QoS == 0 {
		c.MQTT.QoS = def.MQTT.QoS
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	return time.ParseDuration(s)
}
