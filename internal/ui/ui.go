package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/common-nighthawk/go-figure"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/router"
	"github.com/desertthunder/hpx/internal/services"
	"github.com/desertthunder/hpx/internal/session"
	"github.com/desertthunder/hpx/internal/shared"
)

const bannerFont = "cybermedium"

// Backend is the subset of [services.APIService] the views call.
type Backend interface {
	Signup(ctx context.Context, req services.SignupRequest) (*services.AuthResponse, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.AuthResponse, error)
	Rooms(ctx context.Context) (*services.RoomsResponse, error)
	CreateRoom(ctx context.Context, req services.CreateRoomRequest) (*models.Room, error)
	DeleteRoom(ctx context.Context, id string) (*models.RoomResponse, error)
	JoinURL(id string) (string, error)
}

// roomItem wraps [models.RoomResponse] to implement [list.Item].
type roomItem struct {
	room models.RoomResponse
	own  bool
}

var _ list.Item = roomItem{}

func (i roomItem) FilterValue() string { return i.room.Name }
func (i roomItem) Title() string {
	if i.own {
		return i.room.Name + " (yours)"
	}
	return i.room.Name
}
func (i roomItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.room.HostName, shared.VisibilityString(i.room.Public))
	if i.room.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.room.Description)
	}
	return desc
}

// Model represents the TUI application state.
//
// The current screen is always derived from the router's location; views never switch themselves.
type Model struct {
	ctx         context.Context
	router      *router.Router
	store       *session.Store
	api         Backend
	logger      *log.Logger
	view        ViewState
	loc         router.Location
	sess        session.Session
	width       int
	height      int
	rooms       list.Model
	known       map[string]models.RoomResponse
	userRoom    *models.RoomResponse
	room        models.RoomResponse
	joinURL     string
	login       loginForm
	create      roomForm
	busy        bool
	status      string
	err         error
	sessions    chan session.Session
	unsubscribe func()
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, r *router.Router, store *session.Store, api Backend, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	rooms := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	rooms.Title = "Rooms"
	rooms.SetShowHelp(false)

	m := &Model{
		ctx:      ctx,
		router:   r,
		store:    store,
		api:      api,
		logger:   logger,
		view:     LoginView,
		sess:     store.Snapshot(),
		rooms:    rooms,
		known:    map[string]models.RoomResponse{},
		login:    newLoginForm(false),
		create:   newRoomForm(),
		sessions: make(chan session.Session, 8),
		help:     help.New(),
		keys:     newKeyMap(),
	}

	m.unsubscribe = store.Subscribe(func(s session.Session) {
		select {
		case m.sessions <- s:
		default:
		}
	})
	return m
}

// Close detaches the model from the session store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init navigates to the home route; signed-out sessions land on the login view.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.navigate(router.Named(RouteHome, nil)), m.waitForSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rooms.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.forceQ) {
			return m, tea.Quit
		}
		switch m.view {
		case HomeView:
			return m.handleHomeKeys(msg)
		case LoginView:
			return m.handleLoginKeys(msg)
		case CreateRoomView:
			return m.handleCreateKeys(msg)
		case RoomView:
			return m.handleRoomKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgNavigated:
		data := msg.data.(navigated)
		m.busy = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		return m, m.enter(data.loc)

	case MsgRoomsFetched:
		data := msg.data.(roomsFetched)
		m.busy = false
		if data.err != nil {
			if errors.Is(data.err, shared.ErrNotAuthenticated) {
				m.status = "Session expired, please log in again"
				return m, m.logout()
			}
			m.err = data.err
			return m, nil
		}
		return m, m.setRooms(data.rooms)

	case MsgAuthenticated:
		data := msg.data.(authenticated)
		m.busy = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		target := router.Named(RouteHome, nil)
		if m.loc.RedirectedFrom != "" {
			target = router.Path(m.loc.RedirectedFrom)
		}
		return m, m.navigate(target)

	case MsgRoomCreated:
		data := msg.data.(roomCreated)
		m.busy = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		hostName := ""
		if creds, ok := m.store.Credentials(); ok {
			hostName = creds.Username
		}
		created := models.RoomResponse{Room: *data.room, HostName: hostName}
		m.known[created.ID] = created
		m.userRoom = &created
		return m, m.navigate(router.Named(RouteJoinRoom, map[string]string{"id": created.ID}))

	case MsgRoomDeleted:
		data := msg.data.(roomDeleted)
		m.busy = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		delete(m.known, data.room.ID)
		m.userRoom = nil
		m.status = fmt.Sprintf("Deleted room %s", data.room.Name)
		return m, m.fetchRooms()

	case MsgSessionChanged:
		m.sess = msg.data.(session.Session)
		return m, m.waitForSession()
	}
	return m, nil
}

// enter makes loc the active screen and starts whatever it needs to load.
func (m *Model) enter(loc router.Location) tea.Cmd {
	m.loc = loc
	m.view = viewFor(loc)
	m.err = nil

	switch m.view {
	case HomeView:
		return m.fetchRooms()

	case LoginView:
		m.login = newLoginForm(m.login.signup)
		if loc.Redirected() && loc.RedirectedFrom != "/" {
			m.status = fmt.Sprintf("Log in to open %s", loc.RedirectedFrom)
		}
		return textinput.Blink

	case CreateRoomView:
		m.status = ""
		m.create = newRoomForm()
		return textinput.Blink

	case RoomView:
		m.status = ""
		id := loc.Param("id")
		room, ok := m.known[id]
		if !ok {
			room = models.RoomResponse{Room: models.Room{ID: id}}
		}
		m.room = room

		url, err := m.api.JoinURL(id)
		if err != nil {
			m.err = err
		}
		m.joinURL = url
	}
	return nil
}

func (m *Model) setRooms(resp *services.RoomsResponse) tea.Cmd {
	m.userRoom = resp.UserRoom

	items := make([]list.Item, 0, len(resp.PublicRooms)+1)
	if resp.UserRoom != nil {
		m.known[resp.UserRoom.ID] = *resp.UserRoom
		items = append(items, roomItem{room: *resp.UserRoom, own: true})
	}
	for _, room := range resp.PublicRooms {
		m.known[room.ID] = room
		items = append(items, roomItem{room: room})
	}
	return m.rooms.SetItems(items)
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.rooms.FilterState() == list.Filtering {
		return m.updateActive(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.newRoom):
		return m, m.navigate(router.Named(RouteCreateRoom, nil))
	case key.Matches(msg, m.keys.refresh):
		m.status = ""
		return m, m.fetchRooms()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.delete):
		if m.userRoom == nil {
			m.status = "You are not hosting a room"
			return m, nil
		}
		return m, m.deleteRoom(m.userRoom.ID)
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.rooms.SelectedItem().(roomItem); ok {
			return m, m.navigate(router.Named(RouteJoinRoom, map[string]string{"id": item.room.ID}))
		}
		return m, nil
	}

	return m.updateActive(msg)
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		m.err = nil
		m.login = newLoginForm(!m.login.signup)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.next):
		return m, m.login.next()
	case key.Matches(msg, m.keys.prev):
		return m, m.login.prev()
	case key.Matches(msg, m.keys.enter):
		if !m.login.onLast() {
			return m, m.login.next()
		}
		return m, m.submitLogin()
	}
	return m, m.login.update(msg)
}

func (m *Model) handleCreateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.back()
	case key.Matches(msg, m.keys.public):
		m.create.public = !m.create.public
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m, m.create.next()
	case key.Matches(msg, m.keys.prev):
		return m, m.create.prev()
	case key.Matches(msg, m.keys.enter):
		if !m.create.onLast() {
			return m, m.create.next()
		}
		return m, m.submitRoom()
	}
	return m, m.create.update(msg)
}

func (m *Model) handleRoomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.back()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}
	return m, nil
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HomeView:
		m.rooms, cmd = m.rooms.Update(msg)
	case LoginView:
		cmd = m.login.update(msg)
	case CreateRoomView:
		cmd = m.create.update(msg)
	}
	return m, cmd
}

func (m *Model) navigate(target router.Target) tea.Cmd {
	r, ctx := m.router, m.ctx
	return func() tea.Msg {
		loc, err := r.Navigate(ctx, target)
		return navigatedMsg(loc, err)
	}
}

// back returns to the previous screen, or home when there is none.
func (m *Model) back() tea.Cmd {
	r, ctx := m.router, m.ctx
	return func() tea.Msg {
		loc, err := r.Back(ctx)
		if errors.Is(err, router.ErrNoHistory) {
			loc, err = r.Navigate(ctx, router.Named(RouteHome, nil))
		}
		return navigatedMsg(loc, err)
	}
}

// logout clears the session and navigates home, which the guard turns into the login view.
func (m *Model) logout() tea.Cmd {
	r, ctx, store, logger := m.router, m.ctx, m.store, m.logger
	m.userRoom = nil
	m.known = map[string]models.RoomResponse{}
	return func() tea.Msg {
		if err := store.Clear(ctx); err != nil {
			logger.Warn("failed to clear persisted session", "error", err)
		}
		loc, err := r.Navigate(ctx, router.Named(RouteHome, nil))
		return navigatedMsg(loc, err)
	}
}

func (m *Model) fetchRooms() tea.Cmd {
	api, ctx := m.api, m.ctx
	m.busy = true
	return func() tea.Msg {
		rooms, err := api.Rooms(ctx)
		return roomsFetchedMsg(rooms, err)
	}
}

func (m *Model) deleteRoom(id string) tea.Cmd {
	api, ctx := m.api, m.ctx
	m.busy = true
	return func() tea.Msg {
		room, err := api.DeleteRoom(ctx, id)
		return roomDeletedMsg(room, err)
	}
}

func (m *Model) submitLogin() tea.Cmd {
	api, ctx, store := m.api, m.ctx, m.store
	signup := m.login.signup
	loginReq, signupReq := m.login.loginRequest(), m.login.signupRequest()
	m.busy = true
	m.err = nil

	return func() tea.Msg {
		var (
			resp *services.AuthResponse
			err  error
		)
		if signup {
			resp, err = api.Signup(ctx, signupReq)
		} else {
			resp, err = api.Login(ctx, loginReq)
		}
		if err != nil {
			return authenticatedMsg(nil, err)
		}

		if err := store.SetToken(ctx, resp.Token); err != nil {
			return authenticatedMsg(nil, err)
		}
		if err := store.SetCredentials(ctx, resp.User); err != nil {
			return authenticatedMsg(nil, err)
		}
		return authenticatedMsg(resp, nil)
	}
}

func (m *Model) submitRoom() tea.Cmd {
	api, ctx := m.api, m.ctx
	req := m.create.request()
	if req.Name == "" {
		m.err = fmt.Errorf("%w: room name is required", shared.ErrMissingArgument)
		return nil
	}
	m.busy = true
	m.err = nil

	return func() tea.Msg {
		room, err := api.CreateRoom(ctx, req)
		return roomCreatedMsg(room, err)
	}
}

func (m *Model) waitForSession() tea.Cmd {
	ch := m.sessions
	return func() tea.Msg {
		return sessionChangedMsg(<-ch)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case HomeView:
		body = m.renderHome()
	case LoginView:
		body = m.renderLogin()
	case CreateRoomView:
		body = m.renderCreate()
	case RoomView:
		body = m.renderRoom()
	}

	var footer []string
	if m.busy {
		footer = append(footer, styles.help.Render("working..."))
	}
	if m.status != "" {
		footer = append(footer, styles.warn.Render(m.status))
	}
	if m.err != nil {
		footer = append(footer, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return fmt.Sprintf("%s\n%s\n%s", m.renderHeader(), body, strings.Join(footer, "\n"))
}

func (m *Model) renderHeader() string {
	if m.sess.Credentials == nil {
		if m.sess.Authenticated() {
			return styles.header.Render("hpx • signed in")
		}
		return styles.header.Render("hpx • signed out")
	}

	spotify := styles.warn.Render("spotify not connected")
	if m.sess.Credentials.SpotifyConnected {
		spotify = styles.ok.Render("spotify connected")
	}
	return styles.header.Render(fmt.Sprintf("hpx • %s • %s", m.sess.Credentials.Username, spotify))
}

func (m *Model) renderHome() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.newRoom, m.keys.delete, m.keys.refresh, m.keys.logout, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.rooms.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderLogin() string {
	banner := styles.banner.Render(figure.NewFigure("hpx", bannerFont, true).String())
	title := styles.title.Render(m.login.title())

	toggle := key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sign up instead"))
	if m.login.signup {
		toggle = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "log in instead"))
	}
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	helpKeys := []key.Binding{submit, m.keys.next, toggle, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit"))}

	return fmt.Sprintf("%s\n%s\n%s%s", banner, title, m.login.view(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderCreate() string {
	title := styles.title.Render("New room")

	visibility := fmt.Sprintf("Visibility: %s", shared.VisibilityString(m.create.public))
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create"))
	helpKeys := []key.Binding{submit, m.keys.next, m.keys.public, m.keys.back}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, m.create.view(), visibility, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderRoom() string {
	name := m.room.Name
	if name == "" {
		name = "Room " + m.room.ID
	}
	title := styles.title.Render(name)

	var b strings.Builder
	if m.room.HostName != "" {
		fmt.Fprintf(&b, "Host: %s\n", m.room.HostName)
		fmt.Fprintf(&b, "Visibility: %s\n", shared.VisibilityString(m.room.Public))
	}
	if m.room.Description != "" {
		fmt.Fprintf(&b, "%s\n", m.room.Description)
	}
	fmt.Fprintf(&b, "\nJoin URL:\n%s\n", styles.ok.Render(m.joinURL))

	helpKeys := []key.Binding{m.keys.back, m.keys.logout, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), m.help.ShortHelpView(helpKeys))
}
