package monitor_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/absmach/fldash/monitor"
	pkgerrors "github.com/absmach/fldash/pkg/errors"
	"github.com/absmach/fldash/pkg/status"
	"github.com/absmach/fldash/pkg/stream"
	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

// fakeStream lets a test deliver events by hand.
type fakeStream struct {
	mu       sync.Mutex
	handlers map[string]stream.Handler
	closed   bool
	down     bool
	ended    bool
	done     chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		handlers: make(map[string]stream.Handler),
		done:     make(chan struct{}),
	}
}

func (s *fakeStream) Subscribe(_ context.Context, event string, h stream.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[event] = h

	return nil
}

func (s *fakeStream) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.finish()

	return nil
}

func (s *fakeStream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.closed && !s.ended && !s.down
}

func (s *fakeStream) Done() <-chan struct{} {
	return s.done
}

// setDown simulates the transport reconnecting.
func (s *fakeStream) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.down = down
}

// end simulates the transport giving up.
func (s *fakeStream) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finish()
}

func (s *fakeStream) finish() {
	if !s.ended {
		s.ended = true
		close(s.done)
	}
}

func (s *fakeStream) emit(event, payload string) error {
	s.mu.Lock()
	h, ok := s.handlers[event]
	s.mu.Unlock()
	if !ok {
		return pkgerrors.ErrUnknownEvent
	}

	return h(event, []byte(payload))
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func dialTo(s stream.Stream) stream.Dialer {
	return func(context.Context) (stream.Stream, error) {
		return s, nil
	}
}

func startPusher(t *testing.T, capacity int) (*monitor.Pusher, *fakeStream, *clockwork.FakeClock) {
	t.Helper()

	fs := newFakeStream()
	clk := clockwork.NewFakeClockAt(epoch)
	p := monitor.NewPusher(dialTo(fs), capacity, clk, discard())
	p.Start(context.Background())
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.Eventually(t, func() bool { return p.State().Connection == monitor.Connected }, waitFor, tick)

	return p, fs, clk
}

const roundPayload = `{"round":4,"global_accuracy":0.81,"global_loss":0.42,"rejected_updates":1,"dp_sigma":0.1,"clip_norm":1.5}`

func TestPusherServerUpdateReplacesRound(t *testing.T) {
	t.Parallel()

	p, fs, clk := startPusher(t, 21)

	st := p.State()
	assert.True(t, st.Waiting)
	assert.Nil(t, st.Round)

	require.NoError(t, fs.emit(stream.ServerUpdate, roundPayload))
	clk.Advance(interval)
	require.NoError(t, fs.emit(stream.ServerUpdate, `{"round":5,"global_accuracy":0.83,"global_loss":0.40,"rejected_updates":0,"dp_sigma":0.1,"clip_norm":1.5}`))

	st = p.State()
	assert.False(t, st.Waiting)
	require.NotNil(t, st.Round)
	assert.Equal(t, 5, st.Round.Round)
	assert.Equal(t, 0, st.Round.RejectedUpdates)

	require.Len(t, st.RoundHistory, 2)
	r, _ := st.RoundHistory[0].Value("round")
	assert.Equal(t, 4.0, r)
	loss, _ := st.RoundHistory[1].Value("loss")
	assert.InDelta(t, 0.40, loss, 1e-9)
	assert.Equal(t, "12:00:03", st.RoundHistory[1].Timestamp)
}

func TestPusherRejectsMalformedRound(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)
	require.NoError(t, fs.emit(stream.ServerUpdate, roundPayload))

	err := fs.emit(stream.ServerUpdate, `{"round":5,"global_accuracy":0.9}`)
	require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)

	st := p.State()
	require.NotNil(t, st.Round)
	assert.Equal(t, 4, st.Round.Round)
	assert.Len(t, st.RoundHistory, 1)
}

func TestPusherClientsUpdateReplacesRoster(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)

	require.NoError(t, fs.emit(stream.ClientsUpdate, `[
		{"id":1,"trust":0.92,"status":"active","staleness":1},
		{"id":2,"trust":0.31,"status":"malicious","staleness":5}
	]`))

	st := p.State()
	require.Len(t, st.Clients, 2)
	assert.Equal(t, status.Low, st.Clients[0].Severity)
	assert.Equal(t, status.High, st.Clients[1].Severity)
	assert.Equal(t, status.Normal, st.Clients[0].Band)
	assert.Equal(t, status.Flagged, st.Clients[1].Band)

	require.NoError(t, fs.emit(stream.ClientsUpdate, `[{"id":3,"trust":0.5,"status":"active","staleness":2}]`))

	st = p.State()
	require.Len(t, st.Clients, 1)
	assert.Equal(t, "3", st.Clients[0].ID)
	assert.Equal(t, status.Medium, st.Clients[0].Severity)

	assert.Len(t, st.TrustHistory["1"], 1)
	assert.Len(t, st.TrustHistory["2"], 1)
	assert.Len(t, st.TrustHistory["3"], 1)
	v, ok := st.TrustHistory["2"][0].Value("client_2")
	require.True(t, ok)
	assert.InDelta(t, 0.31, v, 1e-9)

	require.Len(t, st.TrustEvolution, 2)
	_, ok = st.TrustEvolution[0].Value("client_1")
	assert.True(t, ok)
	_, ok = st.TrustEvolution[1].Value("client_1")
	assert.False(t, ok)

	require.NoError(t, fs.emit(stream.ClientsUpdate, `[]`))
	st = p.State()
	assert.Empty(t, st.Clients)
	assert.Len(t, st.TrustEvolution, 2)
}

func TestPusherTrustHistoryIsBounded(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)
	for i := 0; i < 25; i++ {
		require.NoError(t, fs.emit(stream.ClientsUpdate, `[{"id":"a","trust":0.5,"staleness":0}]`))
	}

	st := p.State()
	assert.Len(t, st.TrustHistory["a"], 21)
	assert.NotContains(t, st.TrustHistory, "missing")
	assert.Len(t, st.TrustEvolution, 21)
}

func TestPusherRejectsDuplicateRoster(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)
	require.NoError(t, fs.emit(stream.ClientsUpdate, `[{"id":1,"trust":0.9,"staleness":0}]`))

	err := fs.emit(stream.ClientsUpdate, `[{"id":1,"trust":0.9,"staleness":0},{"id":1,"trust":0.2,"staleness":0}]`)
	require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
	st := p.State()
	assert.Len(t, st.Clients, 1)
	assert.Len(t, st.TrustHistory["1"], 1)
}

func TestPusherLogsUpdateReplacesLogs(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)
	assert.Empty(t, p.State().Logs)

	require.NoError(t, fs.emit(stream.LogsUpdate, `["round 1 started","client 2 rejected"]`))
	require.NoError(t, fs.emit(stream.LogsUpdate, `["round 2 started"]`))

	assert.Equal(t, []string{"round 2 started"}, []string(p.State().Logs))
}

func TestPusherIgnoresEventsAfterStop(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)
	require.NoError(t, fs.emit(stream.ServerUpdate, roundPayload))

	require.NoError(t, p.Stop(context.Background()))
	assert.True(t, fs.isClosed())

	require.NoError(t, fs.emit(stream.ServerUpdate, `{"round":9,"global_accuracy":0.9,"global_loss":0.1,"rejected_updates":0,"dp_sigma":0,"clip_norm":1}`))
	require.NoError(t, fs.emit(stream.ClientsUpdate, `[{"id":1,"trust":0.9,"staleness":0}]`))
	require.NoError(t, fs.emit(stream.LogsUpdate, `["late"]`))

	st := p.State()
	assert.Equal(t, monitor.Closed, st.Connection)
	assert.Equal(t, 4, st.Round.Round)
	assert.Len(t, st.RoundHistory, 1)
	assert.Empty(t, st.Clients)
	assert.Empty(t, st.Logs)

	require.NoError(t, p.Stop(context.Background()))
}

func TestPusherDialFailureLeavesViewWaiting(t *testing.T) {
	t.Parallel()

	dial := func(context.Context) (stream.Stream, error) {
		return nil, errRefused
	}
	p := monitor.NewPusher(dial, 21, clockwork.NewFakeClockAt(epoch), discard())
	p.Start(context.Background())
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.Eventually(t, func() bool { return p.State().Connection == monitor.Failed }, waitFor, tick)
	assert.True(t, p.State().Waiting)
}

func TestPusherClosesStreamOpenedAfterStop(t *testing.T) {
	t.Parallel()

	fs := newFakeStream()
	release := make(chan struct{})
	dial := func(context.Context) (stream.Stream, error) {
		<-release

		return fs, nil
	}
	p := monitor.NewPusher(dial, 21, clockwork.NewFakeClockAt(epoch), discard())
	p.Start(context.Background())

	require.NoError(t, p.Stop(context.Background()))
	close(release)

	require.Eventually(t, fs.isClosed, waitFor, tick)
	assert.Equal(t, monitor.Closed, p.State().Connection)

	fs.mu.Lock()
	assert.Empty(t, fs.handlers)
	fs.mu.Unlock()
}

func TestPusherReportsTransportState(t *testing.T) {
	t.Parallel()

	p, fs, _ := startPusher(t, 21)
	require.NoError(t, fs.emit(stream.ServerUpdate, roundPayload))

	fs.setDown(true)
	assert.Equal(t, monitor.Reconnecting, p.State().Connection)
	assert.Equal(t, monitor.Connected, p.Connection())
	fs.setDown(false)
	assert.Equal(t, monitor.Connected, p.State().Connection)

	fs.end()
	require.Eventually(t, func() bool { return p.Connection() == monitor.Failed }, waitFor, tick)

	st := p.State()
	assert.Equal(t, monitor.Failed, st.Connection)
	require.NotNil(t, st.Round)
	assert.Equal(t, 4, st.Round.Round)
}

func TestPusherReportsDroppedWebSocket(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.CloseNow()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := monitor.NewPusher(stream.WebSocketDialer(url, discard()), 21, clockwork.NewFakeClockAt(epoch), discard())
	p.Start(context.Background())
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.Eventually(t, func() bool { return p.State().Connection == monitor.Failed }, waitFor, tick)
	assert.True(t, p.State().Waiting)
}
