package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	pkgerrors "github.com/absmach/fldash/pkg/errors"
	"github.com/absmach/fldash/pkg/fl"
	"github.com/absmach/fldash/pkg/window"
	"github.com/jonboulle/clockwork"
)

const (
	DefPollInterval = 3 * time.Second

	accuracyKey = "accuracy"
	trustKey    = "trust"
)

var errMissingAccuracy = errors.Join(pkgerrors.ErrMalformedPayload, fl.ErrMissingField)

// FetchFunc reads one client's current state from the coordinator.
type FetchFunc func(ctx context.Context, id string) (fl.ClientRecord, error)

// Poller keeps a single client's trust and accuracy history by fetching it on
// a fixed interval. Ticks do not wait for each other, so two fetches may be in
// flight at once; every successful one adds a point and the last to finish
// sets the latest record.
type Poller struct {
	id       string
	fetch    FetchFunc
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	history *window.Buffer[window.Point]

	mu       sync.Mutex
	latest   *fl.ClientRecord
	failures uint64
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
}

func NewPoller(id string, fetch FetchFunc, interval time.Duration, capacity int, clk clockwork.Clock, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefPollInterval
	}

	return &Poller{
		id:       id,
		fetch:    fetch,
		interval: interval,
		clock:    clk,
		logger:   logger.With(slog.String("client_id", id)),
		history:  window.New[window.Point](capacity),
		done:     make(chan struct{}),
	}
}

// Start fetches once right away and then on every tick until Stop. The ticker
// is registered before Start returns.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.interval)

	p.launch(ctx)
	go p.run(ctx, ticker)
}

// Stop cancels in-flight fetches and the ticker. Results that arrive after
// Stop are dropped. Stop is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()

		return
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}
	p.cancel()
	<-p.done
}

// Wait blocks until every fetch started so far has returned.
func (p *Poller) Wait() {
	p.inflight.Wait()
}

func (p *Poller) Latest() (fl.ClientRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.latest == nil {
		return fl.ClientRecord{}, false
	}

	return *p.latest, true
}

func (p *Poller) History() []window.Point {
	return p.history.Snapshot()
}

func (p *Poller) Failures() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.failures
}

func (p *Poller) ClientID() string {
	return p.id
}

func (p *Poller) run(ctx context.Context, ticker clockwork.Ticker) {
	defer close(p.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.mu.Lock()
			if !p.stopped {
				p.launch(ctx)
			}
			p.mu.Unlock()
		}
	}
}

// launch must be called with p.mu held.
func (p *Poller) launch(ctx context.Context) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.poll(ctx)
	}()
}

func (p *Poller) poll(ctx context.Context) {
	c, err := p.fetch(ctx, p.id)
	if err == nil && c.LocalAccuracy == nil {
		err = errMissingAccuracy
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()

		return
	}
	if err != nil {
		p.failures++
		p.mu.Unlock()
		p.logger.Warn("Client fetch failed", slog.Any("error", err))

		return
	}

	p.latest = &c
	p.history.Append(window.NewPoint(p.clock.Now(), map[string]float64{
		accuracyKey: *c.LocalAccuracy,
		trustKey:    c.Trust,
	}))
	p.mu.Unlock()
}
