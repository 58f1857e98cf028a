package monitor

import (
	"github.com/absmach/fldash/pkg/auth"
)

type View string

const (
	Landing      View = "landing"
	ServerView   View = "server"
	ClientView   View = "client"
	ClientDetail View = "client_detail"
)

const (
	LandingPath = "/"
	ServerPath  = "/server"
	ClientPath  = "/client"
)

// Route names a view and, for the detail view, the client it shows.
type Route struct {
	View     View   `json:"view"`
	ClientID string `json:"client_id,omitempty"`
}

func LandingRoute() Route { return Route{View: Landing} }

func ServerRoute() Route { return Route{View: ServerView} }

func ClientRoute() Route { return Route{View: ClientView} }

func ClientDetailRoute(id string) Route { return Route{View: ClientDetail, ClientID: id} }

// HomeRoute is where a role lands right after login.
func HomeRoute(role auth.Role) Route {
	switch role {
	case auth.Server:
		return ServerRoute()
	case auth.Client:
		return ClientRoute()
	default:
		return LandingRoute()
	}
}

// Role is the role a session needs to enter the route. The landing view needs
// none.
func (r Route) Role() auth.Role {
	switch r.View {
	case ServerView, ClientDetail:
		return auth.Server
	case ClientView:
		return auth.Client
	default:
		return auth.None
	}
}

func (r Route) Path() string {
	switch r.View {
	case ServerView:
		return ServerPath
	case ClientView:
		return ClientPath
	case ClientDetail:
		return ServerPath + ClientPath + "/" + r.ClientID
	default:
		return LandingPath
	}
}

func (r Route) Valid() bool {
	switch r.View {
	case Landing, ServerView, ClientView:
		return r.ClientID == ""
	case ClientDetail:
		return r.ClientID != ""
	default:
		return false
	}
}
