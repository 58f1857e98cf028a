package sdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/absmach/fldash/pkg/errors"
	"github.com/absmach/fldash/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoordinator(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/client/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "404" {
			http.NotFound(w, r)

			return
		}
		if r.PathValue("id") == "bad" {
			_, _ = w.Write([]byte(`{"trust":0.5}`))

			return
		}
		_, _ = w.Write([]byte(`{"id":` + r.PathValue("id") + `,"local_accuracy":0.74,"trust":0.91,"update_status":"Accepted","dp_sigma":0.05,"clip_norm":1.0}`))
	})
	mux.HandleFunc("GET /api/server/status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"round":12,"global_accuracy":0.81,"global_loss":0.42,"rejected_updates":4,"dp_sigma":0.05,"clip_norm":1.0}`))
	})
	mux.HandleFunc("GET /api/clients", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"trust":0.92,"status":"active","staleness":0},{"id":3,"trust":0.45,"status":"malicious","staleness":4}]`))
	})
	mux.HandleFunc("GET /api/logs", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["Round 12 aggregation complete."]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestClient(t *testing.T) {
	t.Parallel()

	srv := newCoordinator(t)
	s := sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL + "/api/"})
	ctx := context.Background()

	c, err := s.Client(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", c.ID)
	assert.InDelta(t, 0.91, c.Trust, 1e-9)
	require.NotNil(t, c.LocalAccuracy)
	assert.InDelta(t, 0.74, *c.LocalAccuracy, 1e-9)
	assert.Equal(t, "Accepted", c.UpdateStatus)

	_, err = s.Client(ctx, "404")
	require.Error(t, err)

	_, err = s.Client(ctx, "bad")
	require.ErrorIs(t, err, pkgerrors.ErrMalformedPayload)
}

func TestServerReads(t *testing.T) {
	t.Parallel()

	srv := newCoordinator(t)
	s := sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL + "/api"})
	ctx := context.Background()

	r, err := s.ServerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, r.Round)
	assert.Equal(t, 4, r.RejectedUpdates)

	roster, err := s.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "3", roster[1].ID)

	logs, err := s.Logs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Round 12 aggregation complete."}, []string(logs))
}

func TestClientHonoursContext(t *testing.T) {
	t.Parallel()

	srv := newCoordinator(t)
	s := sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL + "/api"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Client(ctx, "1")
	require.ErrorIs(t, err, context.Canceled)
}
