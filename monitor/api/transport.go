package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/api"
	"github.com/absmach/fldash/pkg/auth"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const clientIDKey = "clientID"

// MakeHandler serves the dashboard views. Views a session may not enter
// answer with a redirect to the landing path.
func MakeHandler(svc monitor.Service, gate *auth.Gate, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get(monitor.LandingPath, otelhttp.NewHandler(kithttp.NewServer(
		sessionEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "get-session").ServeHTTP)
	mux.Post("/login", otelhttp.NewHandler(kithttp.NewServer(
		loginEndpoint(svc),
		decodeLoginReq,
		api.EncodeResponse,
		opts...,
	), "login").ServeHTTP)
	mux.Post("/logout", otelhttp.NewHandler(kithttp.NewServer(
		logoutEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "logout").ServeHTTP)

	mux.Route(monitor.ServerPath, func(r chi.Router) {
		r.Use(auth.Guard(gate, auth.Server, monitor.LandingPath))
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			serverStateEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "server-view").ServeHTTP)
		r.Get(monitor.ClientPath+"/{"+clientIDKey+"}", otelhttp.NewHandler(kithttp.NewServer(
			clientStateEndpoint(svc),
			decodeClientReq,
			api.EncodeResponse,
			opts...,
		), "client-detail-view").ServeHTTP)
	})

	mux.Route(monitor.ClientPath, func(r chi.Router) {
		r.Use(auth.Guard(gate, auth.Client, monitor.LandingPath))
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			clientStateEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "client-view").ServeHTTP)
	})

	mux.Get("/health", supermq.Health("fldash", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeLoginReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeClientReq(_ context.Context, r *http.Request) (any, error) {
	return clientReq{id: chi.URLParam(r, clientIDKey)}, nil
}
