// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// Each screen is bound to a route in [Routes]:
//  1. [LoginView] : log in or sign up (public)
//  2. [HomeView] : browse public rooms and your own room
//  3. [CreateRoomView] : host a new room
//  4. [RoomView] : room details and the websocket join URL
//
// The (view) [Model] never switches screens directly. Every change goes through [router.Router.Navigate],
// so the auth guard installed by [NewRouter] decides what a signed-out user sees.
// Session changes reach the model through [session.Store.Subscribe] and refresh the header.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, n, d, L, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
