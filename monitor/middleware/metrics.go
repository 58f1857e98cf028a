package middleware

import (
	"context"
	"time"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
	"github.com/go-kit/kit/metrics"
)

var _ monitor.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     monitor.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc monitor.Service) monitor.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Login(ctx context.Context, role auth.Role) (auth.Session, monitor.Route, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "login").Add(1)
		mm.latency.With("method", "login").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Login(ctx, role)
}

func (mm *metricsMiddleware) Logout(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "logout").Add(1)
		mm.latency.With("method", "logout").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Logout(ctx)
}

func (mm *metricsMiddleware) Session(ctx context.Context) auth.Session {
	return mm.svc.Session(ctx)
}

func (mm *metricsMiddleware) Navigate(ctx context.Context, route monitor.Route) (monitor.Route, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "navigate").Add(1)
		mm.latency.With("method", "navigate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Navigate(ctx, route)
}

func (mm *metricsMiddleware) Current(ctx context.Context) monitor.Route {
	return mm.svc.Current(ctx)
}

func (mm *metricsMiddleware) ServerState(ctx context.Context) (monitor.ServerState, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "server-state").Add(1)
		mm.latency.With("method", "server-state").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ServerState(ctx)
}

func (mm *metricsMiddleware) ClientState(ctx context.Context) (monitor.ClientState, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "client-state").Add(1)
		mm.latency.With("method", "client-state").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ClientState(ctx)
}

func (mm *metricsMiddleware) Shutdown(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "shutdown").Add(1)
		mm.latency.With("method", "shutdown").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Shutdown(ctx)
}
