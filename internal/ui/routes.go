package ui

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/hpx/internal/router"
)

// Route names.
const (
	RouteHome       = "home"
	RouteCreateRoom = "create-room"
	RouteJoinRoom   = "join-room"
	RouteLogin      = "signup-or-login"
)

// ViewState identifies the screen a route renders.
type ViewState int

const (
	HomeView ViewState = iota
	CreateRoomView
	RoomView
	LoginView
)

func (v ViewState) String() string {
	switch v {
	case HomeView:
		return "home"
	case CreateRoomView:
		return "create-room"
	case RoomView:
		return "room"
	case LoginView:
		return "login"
	default:
		return ""
	}
}

// Routes is the application route table.
func Routes() []router.Route {
	return []router.Route{
		{Path: "/", Name: RouteHome, View: HomeView, RequiresAuth: true},
		{Path: "/create/room", Name: RouteCreateRoom, View: CreateRoomView, RequiresAuth: true},
		{Path: "/room/:id", Name: RouteJoinRoom, View: RoomView, RequiresAuth: true},
		{Path: "/signup-or-login", Name: RouteLogin, View: LoginView},
	}
}

// NewRouter builds a router over [Routes] that sends signed-out users to the login route.
func NewRouter(auth router.Authenticator, logger *log.Logger) (*router.Router, error) {
	opts := []router.Option{}
	if logger != nil {
		opts = append(opts, router.WithLogger(logger))
	}

	r, err := router.New(Routes(), opts...)
	if err != nil {
		return nil, err
	}
	r.BeforeEach(router.RequireAuth(auth, RouteLogin))
	return r, nil
}

// viewFor maps a location to its screen. Unknown routes fall back to the home view.
func viewFor(loc router.Location) ViewState {
	if rt := loc.Route(); rt != nil {
		if v, ok := rt.View.(ViewState); ok {
			return v
		}
	}
	return HomeView
}
