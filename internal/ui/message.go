package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/router"
	"github.com/desertthunder/hpx/internal/services"
	"github.com/desertthunder/hpx/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgNavigated MsgKind = iota
	MsgRoomsFetched
	MsgAuthenticated
	MsgRoomCreated
	MsgRoomDeleted
	MsgSessionChanged
)

type navigated struct {
	loc router.Location
	err error
}

type roomsFetched struct {
	rooms *services.RoomsResponse
	err   error
}

type authenticated struct {
	resp *services.AuthResponse
	err  error
}

type roomCreated struct {
	room *models.Room
	err  error
}

type roomDeleted struct {
	room *models.RoomResponse
	err  error
}

// navigatedMsg is the constructor for [MsgNavigated]
func navigatedMsg(loc router.Location, err error) Msg {
	return Msg{kind: MsgNavigated, data: navigated{loc, err}}
}

// roomsFetchedMsg is the constructor for [MsgRoomsFetched]
func roomsFetchedMsg(rooms *services.RoomsResponse, err error) Msg {
	return Msg{kind: MsgRoomsFetched, data: roomsFetched{rooms, err}}
}

// authenticatedMsg is the constructor for [MsgAuthenticated]
func authenticatedMsg(resp *services.AuthResponse, err error) Msg {
	return Msg{kind: MsgAuthenticated, data: authenticated{resp, err}}
}

// roomCreatedMsg is the constructor for [MsgRoomCreated]
func roomCreatedMsg(room *models.Room, err error) Msg {
	return Msg{kind: MsgRoomCreated, data: roomCreated{room, err}}
}

// roomDeletedMsg is the constructor for [MsgRoomDeleted]
func roomDeletedMsg(room *models.RoomResponse, err error) Msg {
	return Msg{kind: MsgRoomDeleted, data: roomDeleted{room, err}}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(s session.Session) Msg {
	return Msg{kind: MsgSessionChanged, data: s}
}
