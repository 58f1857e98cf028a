package monitor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/absmach/fldash/pkg/fl"
	"github.com/absmach/fldash/pkg/stream"
	"github.com/absmach/fldash/pkg/window"
	"github.com/jonboulle/clockwork"
)

type ConnState string

const (
	Connecting   ConnState = "connecting"
	Connected    ConnState = "connected"
	Reconnecting ConnState = "reconnecting"
	Failed       ConnState = "failed"
	Closed       ConnState = "closed"
)

const (
	roundKey      = "round"
	lossKey       = "loss"
	clientKeyPref = "client_"
)

// Pusher mirrors the coordinator's three push channels. Each channel replaces
// its snapshot wholesale; nothing is merged and the three snapshots are not
// kept consistent with each other.
type Pusher struct {
	dial     stream.Dialer
	capacity int
	clock    clockwork.Clock
	logger   *slog.Logger

	roundHistory   *window.Buffer[window.Point]
	trustEvolution *window.Buffer[window.Point]

	mu      sync.RWMutex
	round   *fl.RoundSnapshot
	roster  fl.Roster
	logs    fl.Logs
	trust   map[string]*window.Buffer[window.Point]
	conn    stream.Stream
	state   ConnState
	started bool
	stopped bool
	cancel  context.CancelFunc
}

func NewPusher(dial stream.Dialer, capacity int, clk clockwork.Clock, logger *slog.Logger) *Pusher {
	return &Pusher{
		dial:           dial,
		capacity:       capacity,
		clock:          clk,
		logger:         logger,
		roundHistory:   window.New[window.Point](capacity),
		trustEvolution: window.New[window.Point](capacity),
		trust:          make(map[string]*window.Buffer[window.Point]),
		logs:           fl.Logs{},
		state:          Connecting,
	}
}

// Start connects in the background. A failed connection, or a stream that
// ends on its own, is logged and leaves the pusher Failed; it is not retried
// here.
func (p *Pusher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	go p.connect(ctx)
}

// Stop closes the connection in whatever state it is in. Events handled after
// Stop change nothing. Stop is safe to call more than once.
func (p *Pusher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()

		return nil
	}
	p.stopped = true
	p.state = Closed
	conn := p.conn
	p.conn = nil
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}

	return conn.Close(ctx)
}

func (p *Pusher) connect(ctx context.Context) {
	conn, err := p.dial(ctx)
	if err != nil {
		p.mu.Lock()
		if !p.stopped {
			p.state = Failed
		}
		p.mu.Unlock()
		p.logger.Warn("Failed to connect to coordinator stream", slog.Any("error", err))

		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		if err := conn.Close(context.Background()); err != nil {
			p.logger.Warn("Failed to close stream opened after view exit", slog.Any("error", err))
		}

		return
	}
	p.conn = conn
	p.mu.Unlock()

	handlers := []struct {
		event string
		h     stream.Handler
	}{
		{stream.ServerUpdate, p.handleServerUpdate},
		{stream.ClientsUpdate, p.handleClientsUpdate},
		{stream.LogsUpdate, p.handleLogsUpdate},
	}
	for _, sub := range handlers {
		if err := conn.Subscribe(ctx, sub.event, sub.h); err != nil {
			p.mu.Lock()
			if !p.stopped {
				p.state = Failed
			}
			p.mu.Unlock()
			p.logger.Warn("Failed to subscribe to coordinator event", slog.String("event", sub.event), slog.Any("error", err))

			return
		}
	}

	p.mu.Lock()
	if !p.stopped {
		p.state = Connected
	}
	p.mu.Unlock()
	p.logger.Info("Subscribed to coordinator stream")

	select {
	case <-ctx.Done():
	case <-conn.Done():
		p.mu.Lock()
		ended := !p.stopped
		if ended {
			p.state = Failed
		}
		p.mu.Unlock()
		if ended {
			p.logger.Warn("Coordinator stream ended")
		}
	}
}

func (p *Pusher) handleServerUpdate(_ string, payload []byte) error {
	r, err := fl.DecodeRound(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}

	p.round = &r
	p.roundHistory.Append(window.NewPoint(p.clock.Now(), map[string]float64{
		roundKey:    float64(r.Round),
		accuracyKey: r.GlobalAccuracy,
		lossKey:     r.GlobalLoss,
	}))

	return nil
}

func (p *Pusher) handleClientsUpdate(_ string, payload []byte) error {
	roster, err := fl.DecodeRoster(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}

	p.roster = roster

	now := p.clock.Now()
	combined := make(map[string]float64, len(roster))
	for _, c := range roster {
		key := clientKeyPref + c.ID
		buf, ok := p.trust[c.ID]
		if !ok {
			buf = window.New[window.Point](p.capacity)
			p.trust[c.ID] = buf
		}
		buf.Append(window.NewPoint(now, map[string]float64{key: c.Trust}))
		combined[key] = c.Trust
	}
	if len(roster) > 0 {
		p.trustEvolution.Append(window.NewPoint(now, combined))
	}

	return nil
}

func (p *Pusher) handleLogsUpdate(_ string, payload []byte) error {
	logs, err := fl.DecodeLogs(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.logs = logs

	return nil
}

// Connection reports the connection state as last set by the pusher itself.
func (p *Pusher) Connection() ConnState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state
}

// State copies the current snapshots. A connected stream that is busy
// reconnecting is reported as Reconnecting.
func (p *Pusher) State() ServerState {
	p.mu.RLock()
	conn := p.conn
	st := p.snapshot()
	p.mu.RUnlock()

	if st.Connection == Connected && conn != nil && !conn.Connected() {
		st.Connection = Reconnecting
	}

	return st
}

// snapshot must be called with p.mu held.
func (p *Pusher) snapshot() ServerState {
	st := ServerState{
		Connection:     p.state,
		Waiting:        p.round == nil,
		Clients:        make([]ClientStatus, 0, len(p.roster)),
		Logs:           append(fl.Logs{}, p.logs...),
		RoundHistory:   p.roundHistory.Snapshot(),
		TrustHistory:   make(map[string][]window.Point, len(p.trust)),
		TrustEvolution: p.trustEvolution.Snapshot(),
	}
	if p.round != nil {
		r := *p.round
		st.Round = &r
	}
	for _, c := range p.roster {
		st.Clients = append(st.Clients, Classify(c))
	}
	for id, buf := range p.trust {
		st.TrustHistory[id] = buf.Snapshot()
	}

	return st
}
