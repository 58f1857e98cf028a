package fldash_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/fldash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[coordinator]
url = "http://coordinator:5000/api"
transport = "mqtt"
timeout = "5s"
reconnect_attempts = 3

[mqtt]
address = "tcp://broker:1883"
topic_prefix = "lab/fl"

[client]
id = "4"
poll_interval = "1s"
`)

	cfg, err := fldash.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://coordinator:5000/api", cfg.Coordinator.URL)
	assert.Equal(t, fldash.DefSocketURL, cfg.Coordinator.SocketURL)
	assert.Equal(t, "mqtt", cfg.Coordinator.Transport)
	assert.Equal(t, uint(3), cfg.Coordinator.ReconnectAttempts)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Address)
	assert.Equal(t, "lab/fl", cfg.MQTT.TopicPrefix)
	assert.Equal(t, uint8(1), cfg.MQTT.QoS)
	assert.Equal(t, "4", cfg.Client.ID)

	timeout, err := cfg.Coordinator.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)

	interval, err := cfg.Client.Interval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, interval)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		content string
		missing bool
	}{
		{desc: "missing file", missing: true},
		{desc: "invalid toml", content: "[coordinator\nurl = 1"},
		{desc: "invalid interval", content: "[client]\npoll_interval = \"soon\""},
		{desc: "invalid mqtt timeout", content: "[mqtt]\ntimeout = \"-\""},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "absent.toml")
			if !tc.missing {
				path = writeConfig(t, tc.content)
			}

			_, err := fldash.LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := fldash.DefaultConfig()
	assert.Equal(t, fldash.DefTransport, cfg.Coordinator.Transport)
	assert.Equal(t, fldash.DefClientID, cfg.Client.ID)

	interval, err := cfg.Client.Interval()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, interval)
}
