package api

import (
	"context"
	"errors"

	"github.com/absmach/fldash/monitor"
	pkgerrors "github.com/absmach/fldash/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func loginEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(loginReq)
		if !ok {
			return sessionRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return sessionRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		s, route, err := svc.Login(ctx, req.Role)
		if err != nil {
			return sessionRes{}, err
		}

		return sessionRes{
			Session: s,
			Route:   route,
			Path:    route.Path(),
		}, nil
	}
}

func logoutEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := svc.Logout(ctx); err != nil {
			return logoutRes{}, err
		}

		return logoutRes{}, nil
	}
}

func sessionEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		route := svc.Current(ctx)

		return sessionRes{
			Session: svc.Session(ctx),
			Route:   route,
			Path:    route.Path(),
		}, nil
	}
}

func serverStateEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		want := monitor.ServerRoute()
		got, err := svc.Navigate(ctx, want)
		if err != nil {
			return serverStateRes{}, err
		}
		if got != want {
			return redirectRes{location: got.Path()}, nil
		}

		st, err := svc.ServerState(ctx)
		if err != nil {
			return serverStateRes{}, err
		}

		return serverStateRes{ServerState: st}, nil
	}
}

func clientStateEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		want := monitor.ClientRoute()
		if req, ok := request.(clientReq); ok {
			if err := req.validate(); err != nil {
				return clientStateRes{}, errors.Join(apiutil.ErrValidation, err)
			}
			want = monitor.ClientDetailRoute(req.id)
		}

		got, err := svc.Navigate(ctx, want)
		if err != nil {
			return clientStateRes{}, err
		}
		if got != want {
			return redirectRes{location: got.Path()}, nil
		}

		st, err := svc.ClientState(ctx)
		if err != nil {
			return clientStateRes{}, err
		}

		return clientStateRes{ClientState: st}, nil
	}
}
