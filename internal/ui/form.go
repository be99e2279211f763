package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/hpx/internal/services"
)

// form is a column of text inputs with a single focused field.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

func newInput(placeholder string, limit int, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = "> "
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (f *form) add(label string, in textinput.Model) {
	f.labels = append(f.labels, label)
	f.inputs = append(f.inputs, in)
}

func (f *form) focusOn(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)

	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
			f.inputs[j].PromptStyle = styles.focused
			f.inputs[j].TextStyle = styles.focused
			continue
		}
		f.inputs[j].Blur()
		f.inputs[j].PromptStyle = styles.blurred
		f.inputs[j].TextStyle = lipgloss.NewStyle()
	}
	return cmd
}

func (f *form) next() tea.Cmd { return f.focusOn(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.focusOn(f.focus - 1) }

// onLast reports whether the final field has focus.
func (f *form) onLast() bool { return f.focus == len(f.inputs)-1 }

// update forwards msg to the focused input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	if f.inputs[i].EchoMode == textinput.EchoPassword {
		return f.inputs[i].Value()
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := styles.blurred.Render(f.labels[i])
		if i == f.focus {
			label = styles.focused.Render(f.labels[i])
		}
		b.WriteString(label + "\n" + in.View() + "\n\n")
	}
	return b.String()
}

// loginForm collects credentials for either login or signup.
type loginForm struct {
	form
	signup bool
}

func newLoginForm(signup bool) loginForm {
	f := loginForm{signup: signup}
	if signup {
		f.add("Username", newInput("ada", 64, false))
		f.add("Email", newInput("ada@example.com", 128, false))
	} else {
		f.add("Username or email", newInput("ada or ada@example.com", 128, false))
	}
	f.add("Password", newInput("password", 128, true))
	f.focusOn(0)
	return f
}

func (f loginForm) title() string {
	if f.signup {
		return "Create an account"
	}
	return "Log in"
}

// loginRequest treats an identifier containing "@" as an email address.
func (f loginForm) loginRequest() services.LoginRequest {
	id := f.value(0)
	req := services.LoginRequest{Password: f.value(1)}
	if strings.Contains(id, "@") {
		req.Email = id
	} else {
		req.Username = id
	}
	return req
}

func (f loginForm) signupRequest() services.SignupRequest {
	return services.SignupRequest{
		Username: f.value(0),
		Email:    f.value(1),
		Password: f.value(2),
	}
}

// roomForm collects the fields of a new room.
type roomForm struct {
	form
	public bool
}

func newRoomForm() roomForm {
	f := roomForm{public: true}
	f.add("Name", newInput("Friday night mix", 64, false))
	f.add("Description", newInput("optional", 256, false))
	f.focusOn(0)
	return f
}

func (f roomForm) request() services.CreateRoomRequest {
	return services.CreateRoomRequest{
		Name:        f.value(0),
		Description: f.value(1),
		Public:      f.public,
	}
}
