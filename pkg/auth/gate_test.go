package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/absmach/fldash/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateStartsUnauthenticated(t *testing.T) {
	t.Parallel()

	g := auth.NewGate()
	s := g.Session()
	assert.False(t, s.LoggedIn)
	assert.Equal(t, auth.None, s.Role)
	assert.Equal(t, auth.Deny, g.Authorize(auth.Server))
	assert.Equal(t, auth.Deny, g.Authorize(auth.Client))
}

func TestGateLoginLogout(t *testing.T) {
	t.Parallel()

	g := auth.NewGate()

	_, err := g.Login(auth.Server)
	require.NoError(t, err)
	assert.Equal(t, auth.Allow, g.Authorize(auth.Server))
	assert.Equal(t, auth.Deny, g.Authorize(auth.Client))

	g.Logout()
	assert.Equal(t, auth.Deny, g.Authorize(auth.Server))
	assert.Equal(t, auth.Deny, g.Authorize(auth.Client))
}

func TestGateLoginSwitchesRole(t *testing.T) {
	t.Parallel()

	g := auth.NewGate()
	first, err := g.Login(auth.Server)
	require.NoError(t, err)

	second, err := g.Login(auth.Client)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, auth.Client, g.Role())
	assert.Equal(t, auth.Allow, g.Authorize(auth.Client))
	assert.Equal(t, auth.Deny, g.Authorize(auth.Server))
}

func TestGateRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	g := auth.NewGate()
	_, err := g.Login(auth.Server)
	require.NoError(t, err)

	_, err = g.Login(auth.Role("admin"))
	require.ErrorIs(t, err, auth.ErrUnknownRole)
	assert.Equal(t, auth.Server, g.Role())
}

func TestAuthorizeHasNoSideEffects(t *testing.T) {
	t.Parallel()

	g := auth.NewGate()
	s, err := g.Login(auth.Client)
	require.NoError(t, err)

	for range 3 {
		assert.Equal(t, auth.Deny, g.Authorize(auth.Server))
		assert.Equal(t, auth.Deny, g.Authorize(auth.None))
	}
	assert.Equal(t, s, g.Session())
}

func TestGuard(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		login    auth.Role
		required auth.Role
		wantCode int
	}{
		{name: "unauthenticated", login: auth.None, required: auth.Server, wantCode: http.StatusFound},
		{name: "other role", login: auth.Client, required: auth.Server, wantCode: http.StatusFound},
		{name: "matching role", login: auth.Server, required: auth.Server, wantCode: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := auth.NewGate()
			if tc.login != auth.None {
				_, err := g.Login(tc.login)
				require.NoError(t, err)
			}

			h := auth.Guard(g, tc.required, "/")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/server", http.NoBody))

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode == http.StatusFound {
				assert.Equal(t, "/", rec.Header().Get("Location"))
			}
		})
	}
}
