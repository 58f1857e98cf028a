package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/monitor/api"
	"github.com/absmach/fldash/monitor/middleware"
	"github.com/absmach/fldash/pkg/auth"
	"github.com/absmach/fldash/pkg/mqtt"
	"github.com/absmach/fldash/pkg/sdk"
	"github.com/absmach/fldash/pkg/stream"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "fldash"
	defHTTPPort   = "9090"
	envPrefixHTTP = "MONITOR_HTTP_"
	pathEnv       = ".env"
	shutdownWait  = 5 * time.Second
)

type envConfig struct {
	LogLevel           string        `env:"MONITOR_LOG_LEVEL"           envDefault:"info"`
	InstanceID         string        `env:"MONITOR_INSTANCE_ID"`
	CoordinatorURL     string        `env:"MONITOR_COORDINATOR_URL"     envDefault:"http://localhost:5000/api"`
	CoordinatorTimeout time.Duration `env:"MONITOR_COORDINATOR_TIMEOUT" envDefault:"0s"`
	TLSVerification    bool          `env:"MONITOR_TLS_VERIFICATION"    envDefault:"true"`
	Transport          string        `env:"MONITOR_STREAM_TRANSPORT"    envDefault:"socketio"`
	SocketURL          string        `env:"MONITOR_SOCKET_URL"          envDefault:"http://localhost:5000"`
	ReconnectAttempts  uint          `env:"MONITOR_RECONNECT_ATTEMPTS"  envDefault:"10"`
	MQTTAddress        string        `env:"MONITOR_MQTT_ADDRESS"        envDefault:"tcp://localhost:1883"`
	MQTTQoS            uint8         `env:"MONITOR_MQTT_QOS"            envDefault:"1"`
	MQTTTimeout        time.Duration `env:"MONITOR_MQTT_TIMEOUT"        envDefault:"30s"`
	MQTTClientID       string        `env:"MONITOR_MQTT_CLIENT_ID"`
	MQTTUsername       string        `env:"MONITOR_MQTT_USERNAME"`
	MQTTPassword       string        `env:"MONITOR_MQTT_PASSWORD"`
	TopicPrefix        string        `env:"MONITOR_TOPIC_PREFIX"        envDefault:"fl/dashboard"`
	ClientID           string        `env:"MONITOR_CLIENT_ID"           envDefault:"1"`
	PollInterval       time.Duration `env:"MONITOR_POLL_INTERVAL"       envDefault:"3s"`
	HistorySize        int           `env:"MONITOR_HISTORY_SIZE"        envDefault:"21"`
	OTELURL            url.URL       `env:"MONITOR_OTEL_URL"`
	TraceRatio         float64       `env:"MONITOR_TRACE_RATIO"         envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler).With(slog.String("instance_id", cfg.InstanceID))
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	dial, err := stream.NewDialer(stream.Config{
		Transport:         cfg.Transport,
		SocketURL:         cfg.SocketURL,
		ReconnectAttempts: cfg.ReconnectAttempts,
		MQTT: mqtt.Config{
			URL:      cfg.MQTTAddress,
			QoS:      cfg.MQTTQoS,
			ID:       cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Timeout:  cfg.MQTTTimeout,
		},
		TopicPrefix: cfg.TopicPrefix,
	}, logger)
	if err != nil {
		logger.Error("failed to configure coordinator stream", slog.String("error", err.Error()))

		return
	}

	coordinator := sdk.NewSDK(sdk.Config{
		CoordinatorURL:  cfg.CoordinatorURL,
		TLSVerification: cfg.TLSVerification,
		Timeout:         cfg.CoordinatorTimeout,
	})

	gate := auth.NewGate()
	svc := monitor.NewService(gate, coordinator.Client, dial, monitor.Config{
		ClientID:     cfg.ClientID,
		PollInterval: cfg.PollInterval,
		HistorySize:  cfg.HistorySize,
	}, clockwork.NewRealClock(), logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, gate, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownWait)
	defer stop()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to tear down active view", slog.Any("error", err))
	}
}
