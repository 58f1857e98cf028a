package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/fldash/pkg/auth"
	"github.com/absmach/fldash/pkg/errors"
	"github.com/absmach/fldash/pkg/stream"
	"github.com/absmach/fldash/pkg/window"
	"github.com/jonboulle/clockwork"
)

const DefClientID = "1"

type Config struct {
	// ClientID is the client shown by the client role's own view.
	ClientID     string
	PollInterval time.Duration
	HistorySize  int
}

type service struct {
	gate   *auth.Gate
	fetch  FetchFunc
	dial   stream.Dialer
	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	current Route
	pusher  *Pusher
	poller  *Poller
}

func NewService(gate *auth.Gate, fetch FetchFunc, dial stream.Dialer, cfg Config, clk clockwork.Clock, logger *slog.Logger) Service {
	if cfg.ClientID == "" {
		cfg.ClientID = DefClientID
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefPollInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = window.DefaultCapacity
	}

	return &service{
		gate:    gate,
		fetch:   fetch,
		dial:    dial,
		cfg:     cfg,
		clock:   clk,
		logger:  logger,
		current: LandingRoute(),
	}
}

func (svc *service) Login(ctx context.Context, role auth.Role) (auth.Session, Route, error) {
	s, err := svc.gate.Login(role)
	if err != nil {
		return auth.Session{}, Route{}, err
	}

	r, err := svc.Navigate(ctx, HomeRoute(role))
	if err != nil {
		return s, Route{}, err
	}

	return s, r, nil
}

func (svc *service) Logout(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.gate.Logout()
	err := svc.teardown(ctx)
	svc.current = LandingRoute()

	return err
}

func (svc *service) Session(_ context.Context) auth.Session {
	return svc.gate.Session()
}

func (svc *service) Navigate(ctx context.Context, route Route) (Route, error) {
	if route.View == ClientDetail && route.ClientID == "" {
		return Route{}, errors.ErrEmptyID
	}
	if !route.Valid() {
		return Route{}, errors.ErrNotFound
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if required := route.Role(); required != auth.None && svc.gate.Authorize(required) == auth.Deny {
		route = LandingRoute()
	}
	if route == svc.current && !svc.failed() {
		return route, nil
	}

	err := svc.teardown(ctx)
	svc.mount(route)

	return route, err
}

func (svc *service) Current(_ context.Context) Route {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.current
}

func (svc *service) ServerState(_ context.Context) (ServerState, error) {
	svc.mu.Lock()
	p := svc.pusher
	svc.mu.Unlock()

	if p == nil {
		return ServerState{}, errors.ErrViewNotActive
	}

	return p.State(), nil
}

func (svc *service) ClientState(_ context.Context) (ClientState, error) {
	svc.mu.Lock()
	p, route := svc.poller, svc.current
	svc.mu.Unlock()

	if p == nil {
		return ClientState{}, errors.ErrViewNotActive
	}

	st := ClientState{
		Route:    route,
		ClientID: p.ClientID(),
		Waiting:  true,
		History:  p.History(),
		Failures: p.Failures(),
	}
	if c, ok := p.Latest(); ok {
		cs := Classify(c)
		st.Client = &cs
		st.Waiting = false
	}

	return st, nil
}

func (svc *service) Shutdown(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.teardown(ctx)
}

// mount must be called with svc.mu held and nothing mounted. Syncs outlive
// the request that entered the view, so they are bound to a fresh context.
func (svc *service) mount(route Route) {
	svc.current = route

	switch route.View {
	case ServerView:
		svc.pusher = NewPusher(svc.dial, svc.cfg.HistorySize, svc.clock, svc.logger)
		svc.pusher.Start(context.Background())
	case ClientView:
		svc.poller = NewPoller(svc.cfg.ClientID, svc.fetch, svc.cfg.PollInterval, svc.cfg.HistorySize, svc.clock, svc.logger)
		svc.poller.Start(context.Background())
	case ClientDetail:
		svc.poller = NewPoller(route.ClientID, svc.fetch, svc.cfg.PollInterval, svc.cfg.HistorySize, svc.clock, svc.logger)
		svc.poller.Start(context.Background())
	}
}

// failed reports a mounted server view whose stream is gone, which entering
// the view again redials. It must be called with svc.mu held.
func (svc *service) failed() bool {
	return svc.pusher != nil && svc.pusher.Connection() == Failed
}

// teardown must be called with svc.mu held.
func (svc *service) teardown(ctx context.Context) error {
	var err error
	if svc.pusher != nil {
		err = svc.pusher.Stop(ctx)
		svc.pusher = nil
	}
	if svc.poller != nil {
		svc.poller.Stop()
		svc.poller = nil
	}

	return err
}
