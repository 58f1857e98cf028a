package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/fldash"
	"github.com/absmach/fldash/cli"
	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
	"github.com/absmach/fldash/pkg/mqtt"
	"github.com/absmach/fldash/pkg/sdk"
	"github.com/absmach/fldash/pkg/stream"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

const defConfigPath = "config.toml"

var (
	configPath     = defConfigPath
	coordinatorURL = ""
	transport      = ""
	clientID       = ""
	logLevel       = "warn"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fldash-cli",
		Short: "Federated learning dashboard CLI",
		Long:  `fldash-cli watches a federated learning coordinator from the terminal, as the server or as one client.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			timeout, _ := cfg.Coordinator.RequestTimeout()
			s := sdk.NewSDK(sdk.Config{
				CoordinatorURL:  cfg.Coordinator.URL,
				TLSVerification: cfg.Coordinator.TLSVerification,
				Timeout:         timeout,
			})
			cli.SetSDK(s)

			mqttTimeout, _ := cfg.MQTT.ConnTimeout()
			dial, err := stream.NewDialer(stream.Config{
				Transport:         cfg.Coordinator.Transport,
				SocketURL:         cfg.Coordinator.SocketURL,
				ReconnectAttempts: cfg.Coordinator.ReconnectAttempts,
				MQTT: mqtt.Config{
					URL:      cfg.MQTT.Address,
					QoS:      cfg.MQTT.QoS,
					ID:       cfg.MQTT.ClientID,
					Username: cfg.MQTT.Username,
					Password: cfg.MQTT.Password,
					Timeout:  mqttTimeout,
				},
				TopicPrefix: cfg.MQTT.TopicPrefix,
			}, logger)
			if err != nil {
				return err
			}

			interval, _ := cfg.Client.Interval()
			cli.SetService(monitor.NewService(auth.NewGate(), s.Client, dial, monitor.Config{
				ClientID:     cfg.Client.ID,
				PollInterval: interval,
				HistorySize:  cfg.Client.HistorySize,
			}, clockwork.NewRealClock(), logger))

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "Config file path")
	rootCmd.PersistentFlags().StringVarP(&coordinatorURL, "coordinator-url", "u", coordinatorURL, "Coordinator REST URL")
	rootCmd.PersistentFlags().StringVarP(&transport, "transport", "t", transport, "Push transport (socketio, websocket or mqtt)")
	rootCmd.PersistentFlags().StringVarP(&clientID, "client-id", "i", clientID, "Client shown by the client view")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", logLevel, "Log level")

	rootCmd.AddCommand(cli.NewLoginCmd())
	rootCmd.AddCommand(cli.NewWatchCmd())
	rootCmd.AddCommand(cli.NewStatusCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}

// loadConfig reads the config file when present, falls back to defaults when
// the default path is absent, and applies flag overrides.
func loadConfig() (fldash.Config, error) {
	cfg := fldash.DefaultConfig()

	loaded, err := fldash.LoadConfig(configPath)
	switch {
	case err == nil:
		cfg = *loaded
	case errors.Is(err, fs.ErrNotExist) && configPath == defConfigPath:
	default:
		return fldash.Config{}, err
	}

	if coordinatorURL != "" {
		cfg.Coordinator.URL = coordinatorURL
	}
	if transport != "" {
		cfg.Coordinator.Transport = transport
	}
	if clientID != "" {
		cfg.Client.ID = clientID
	}

	return cfg, nil
}
