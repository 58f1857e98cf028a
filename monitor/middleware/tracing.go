package middleware

import (
	"context"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ monitor.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    monitor.Service
}

func Tracing(tracer trace.Tracer, svc monitor.Service) monitor.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Login(ctx context.Context, role auth.Role) (auth.Session, monitor.Route, error) {
	ctx, span := tm.tracer.Start(ctx, "login", trace.WithAttributes(
		attribute.String("role", role.String()),
	))
	defer span.End()

	return tm.svc.Login(ctx, role)
}

func (tm *tracing) Logout(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "logout")
	defer span.End()

	return tm.svc.Logout(ctx)
}

func (tm *tracing) Session(ctx context.Context) auth.Session {
	return tm.svc.Session(ctx)
}

func (tm *tracing) Navigate(ctx context.Context, route monitor.Route) (monitor.Route, error) {
	ctx, span := tm.tracer.Start(ctx, "navigate", trace.WithAttributes(
		attribute.String("view", string(route.View)),
		attribute.String("client_id", route.ClientID),
	))
	defer span.End()

	return tm.svc.Navigate(ctx, route)
}

func (tm *tracing) Current(ctx context.Context) monitor.Route {
	return tm.svc.Current(ctx)
}

func (tm *tracing) ServerState(ctx context.Context) (monitor.ServerState, error) {
	ctx, span := tm.tracer.Start(ctx, "server-state")
	defer span.End()

	return tm.svc.ServerState(ctx)
}

func (tm *tracing) ClientState(ctx context.Context) (monitor.ClientState, error) {
	ctx, span := tm.tracer.Start(ctx, "client-state")
	defer span.End()

	return tm.svc.ClientState(ctx)
}

func (tm *tracing) Shutdown(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "shutdown")
	defer span.End()

	return tm.svc.Shutdown(ctx)
}
