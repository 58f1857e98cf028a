package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
)

var _ monitor.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    monitor.Service
}

func Logging(logger *slog.Logger, svc monitor.Service) monitor.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Login(ctx context.Context, role auth.Role) (s auth.Session, r monitor.Route, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("role", role.String()),
				slog.String("id", s.ID),
			),
			slog.String("route", string(r.View)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Login failed", args...)

			return
		}
		lm.logger.Info("Login completed successfully", args...)
	}(time.Now())

	return lm.svc.Login(ctx, role)
}

func (lm *loggingMiddleware) Logout(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Logout failed", args...)

			return
		}
		lm.logger.Info("Logout completed successfully", args...)
	}(time.Now())

	return lm.svc.Logout(ctx)
}

func (lm *loggingMiddleware) Session(ctx context.Context) auth.Session {
	return lm.svc.Session(ctx)
}

func (lm *loggingMiddleware) Navigate(ctx context.Context, route monitor.Route) (resp monitor.Route, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("route",
				slog.String("requested", route.Path()),
				slog.String("entered", resp.Path()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Navigate failed", args...)

			return
		}
		if resp != route {
			lm.logger.Info("Navigation denied, redirected to landing", args...)

			return
		}
		lm.logger.Info("Navigate completed successfully", args...)
	}(time.Now())

	return lm.svc.Navigate(ctx, route)
}

func (lm *loggingMiddleware) Current(ctx context.Context) monitor.Route {
	return lm.svc.Current(ctx)
}

func (lm *loggingMiddleware) ServerState(ctx context.Context) (st monitor.ServerState, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("connection", string(st.Connection)),
			slog.Int("clients", len(st.Clients)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get server state failed", args...)

			return
		}
		lm.logger.Debug("Get server state completed successfully", args...)
	}(time.Now())

	return lm.svc.ServerState(ctx)
}

func (lm *loggingMiddleware) ClientState(ctx context.Context) (st monitor.ClientState, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("client",
				slog.String("id", st.ClientID),
				slog.Bool("waiting", st.Waiting),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get client state failed", args...)

			return
		}
		lm.logger.Debug("Get client state completed successfully", args...)
	}(time.Now())

	return lm.svc.ClientState(ctx)
}

func (lm *loggingMiddleware) Shutdown(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Shutdown failed", args...)

			return
		}
		lm.logger.Info("Shutdown completed successfully", args...)
	}(time.Now())

	return lm.svc.Shutdown(ctx)
}
