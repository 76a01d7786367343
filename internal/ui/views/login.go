package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"archtrack/internal/api"
	"archtrack/internal/models"
	"archtrack/internal/ui/keys"
	"archtrack/internal/ui/styles"
)

// LoggedIn signals a successful login or registration
type LoggedIn struct {
	Session models.Session
}

// LoginView shows the sign-in screen with an optional registration mode
type LoginView struct {
	client *api.Client
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	registering bool
	submitting  bool
	errMsg      string

	name       textinput.Model
	email      textinput.Model
	password   textinput.Model
	department textinput.Model
	focusIdx   int
}

// NewLoginView creates the login view
func NewLoginView(client *api.Client) *LoginView {
	name := textinput.New()
	name.Placeholder = "Full name"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 200
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 200
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	department := textinput.New()
	department.Placeholder = "Department (e.g. CSE)"
	department.CharLimit = 50

	return &LoginView{
		client:     client,
		styles:     styles.NewStyles(),
		keys:       keys.DefaultKeyMap(),
		name:       name,
		email:      email,
		password:   password,
		department: department,
	}
}

// RefreshStyles rebuilds styles after a theme change
func (v *LoginView) RefreshStyles() {
	v.styles = styles.NewStyles()
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

type loginResultMsg struct {
	session models.Session
	err     error
}

func (v *LoginView) submit() tea.Cmd {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if email == "" || password == "" {
		v.errMsg = "email and password are required"
		return nil
	}

	registering := v.registering
	name := strings.TrimSpace(v.name.Value())
	department := strings.TrimSpace(v.department.Value())
	if registering && name == "" {
		v.errMsg = "name is required"
		return nil
	}

	v.submitting = true
	v.errMsg = ""
	client := v.client

	return func() tea.Msg {
		ctx := context.Background()
		var sess models.Session
		var err error
		if registering {
			sess, err = client.Register(ctx, api.RegisterRequest{
				Name:       name,
				Email:      email,
				Password:   password,
				Department: department,
			})
		} else {
			sess, err = client.Login(ctx, email, password)
		}
		return loginResultMsg{session: sess, err: err}
	}
}

// fieldCount returns the number of focusable inputs in the current mode
func (v *LoginView) fieldCount() int {
	if v.registering {
		return 4 // name, email, password, department
	}
	return 2 // email, password
}

func (v *LoginView) inputs() []*textinput.Model {
	if v.registering {
		return []*textinput.Model{&v.name, &v.email, &v.password, &v.department}
	}
	return []*textinput.Model{&v.email, &v.password}
}

func (v *LoginView) focusField(idx int) tea.Cmd {
	inputs := v.inputs()
	v.focusIdx = (idx + len(inputs)) % len(inputs)
	for i, in := range inputs {
		if i == v.focusIdx {
			in.Focus()
		} else {
			in.Blur()
		}
	}
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case loginResultMsg:
		v.submitting = false
		if msg.err != nil {
			v.errMsg = msg.err.Error()
			return v, nil
		}
		return v, func() tea.Msg { return LoggedIn{Session: msg.session} }

	case tea.KeyMsg:
		if v.submitting {
			return v, nil
		}

		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit

		case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.Down):
			return v, v.focusField(v.focusIdx + 1)

		case msg.String() == "shift+tab", key.Matches(msg, v.keys.Up):
			return v, v.focusField(v.focusIdx - 1)

		case key.Matches(msg, v.keys.Enter):
			// enter on the last field submits, otherwise advances
			if v.focusIdx == v.fieldCount()-1 {
				return v, v.submit()
			}
			return v, v.focusField(v.focusIdx + 1)

		case msg.String() == "ctrl+r":
			v.registering = !v.registering
			v.errMsg = ""
			return v, v.focusField(0)
		}

		var cmd tea.Cmd
		inputs := v.inputs()
		*inputs[v.focusIdx], cmd = inputs[v.focusIdx].Update(msg)
		return v, cmd
	}

	return v, nil
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 40)

	title := "Sign In"
	if v.registering {
		title = "Create Account"
	}

	styleFor := func(idx int) lipgloss.Style {
		if idx == v.focusIdx {
			return s.InputFocused
		}
		return s.Input
	}

	var fields []string
	if v.registering {
		fields = append(fields,
			styleFor(0).Width(inputWidth).Render(v.name.View()),
			styleFor(1).Width(inputWidth).Render(v.email.View()),
			styleFor(2).Width(inputWidth).Render(v.password.View()),
			styleFor(3).Width(inputWidth).Render(v.department.View()),
		)
	} else {
		fields = append(fields,
			styleFor(0).Width(inputWidth).Render(v.email.View()),
			styleFor(1).Width(inputWidth).Render(v.password.View()),
		)
	}

	var status string
	switch {
	case v.submitting:
		status = s.TitleMuted.Render("Signing in...")
	case v.errMsg != "":
		status = s.ErrorText.Render(v.errMsg)
	}

	toggleLabel := "ctrl+r register"
	if v.registering {
		toggleLabel = "ctrl+r sign in"
	}
	help := s.Help.Render(
		s.HelpKey.Render("tab") + " next • " +
			s.HelpKey.Render("↵") + " submit • " +
			s.HelpKey.Render(strings.Fields(toggleLabel)[0]) + " " + strings.Join(strings.Fields(toggleLabel)[1:], " ") + " • " +
			s.HelpKey.Render("ctrl+c") + " quit",
	)

	parts := []string{s.Title.Render("archtrack"), s.TitleMuted.Render(title), ""}
	parts = append(parts, fields...)
	if status != "" {
		parts = append(parts, "", status)
	}
	parts = append(parts, help)

	form := lipgloss.JoinVertical(lipgloss.Left, parts...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
