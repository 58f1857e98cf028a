package monitor

import (
	"context"

	"github.com/absmach/fldash/pkg/auth"
)

// Service is the dashboard's navigation and state surface. Exactly one view
// is mounted at a time; entering a view tears down the previous one.
type Service interface {
	// Login selects role and enters that role's home view.
	Login(ctx context.Context, role auth.Role) (auth.Session, Route, error)

	// Logout clears the session and returns to the landing view.
	Logout(ctx context.Context) error

	Session(ctx context.Context) auth.Session

	// Navigate enters route if the session may, and the landing view
	// otherwise. The returned route is the one actually entered; a denial is
	// not an error.
	Navigate(ctx context.Context, route Route) (Route, error)

	// Current returns the mounted route.
	Current(ctx context.Context) Route

	// ServerState reads the aggregate view. It fails with ErrViewNotActive
	// unless the server view is mounted.
	ServerState(ctx context.Context) (ServerState, error)

	// ClientState reads the single-client view, either the client's own view
	// or the server-scoped detail view.
	ClientState(ctx context.Context) (ClientState, error)

	// Shutdown tears down the mounted view.
	Shutdown(ctx context.Context) error
}
