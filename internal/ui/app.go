package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"archtrack/internal/api"
	"archtrack/internal/config"
	"archtrack/internal/models"
	"archtrack/internal/store"
	"archtrack/internal/ui/keys"
	"archtrack/internal/ui/styles"
	"archtrack/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewTasks
)

type App struct {
	cfg         *config.Config
	client      *api.Client
	store       *store.Store
	styles      *styles.Styles
	keys        keys.KeyMap
	currentView View
	login       *views.LoginView
	taskList    *views.TaskListView
	saveErr     string
	width       int
	height      int
}

// Creates a new application
func NewApp(cfg *config.Config, client *api.Client) *App {
	styles.SetDarkMode(cfg.DarkMode)
	return &App{
		cfg:         cfg,
		client:      client,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		currentView: ViewLogin,
		login:       views.NewLoginView(client),
	}
}

type sessionRestoredMsg struct {
	session models.Session
	err     error
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.login.Init()}

	// A saved token skips the login screen when the server still honors it
	if a.client.Token() != "" {
		client := a.client
		cmds = append(cmds, func() tea.Msg {
			sess, err := client.Me(context.Background())
			return sessionRestoredMsg{session: sess, err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (a *App) openTasks(s *store.Store) tea.Cmd {
	a.currentView = ViewTasks
	a.store = s
	a.taskList = views.NewTaskListView(s)

	return tea.Batch(
		a.taskList.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

// saveConfig persists the config, keeping any failure visible in the view.
func (a *App) saveConfig() {
	if err := a.cfg.Save(); err != nil {
		a.saveErr = "config not saved: " + err.Error()
	} else {
		a.saveErr = ""
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update the login view size since it persists
		a.login.Update(msg)

	case sessionRestoredMsg:
		if msg.err != nil {
			// stale token; stay on the login screen
			a.client.SetToken("")
			return a, nil
		}
		return a, a.openTasks(store.New(a.client, msg.session))

	case views.LoggedIn:
		// Persist the token so the next launch can restore the session
		a.cfg.AuthToken = a.client.Token()
		a.cfg.UserRole = firstRole(msg.Session.Roles)
		a.saveConfig()
		return a, a.openTasks(store.New(a.client, msg.Session))

	case views.LoggedOut:
		a.currentView = ViewLogin
		a.client.SetToken("")
		a.cfg.AuthToken = ""
		a.saveConfig()
		a.login = views.NewLoginView(a.client)
		return a, tea.Batch(
			a.login.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Theme) {
			a.cfg.DarkMode = !a.cfg.DarkMode
			styles.SetDarkMode(a.cfg.DarkMode)
			a.saveConfig()
			a.styles = styles.NewStyles()
			a.login.RefreshStyles()
			if a.taskList != nil {
				a.taskList.RefreshStyles()
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	var view string
	switch {
	case a.currentView == ViewTasks && a.taskList != nil:
		view = a.taskList.View()
	default:
		view = a.login.View()
	}

	if a.saveErr != "" {
		view += "\n" + a.styles.ErrorText.Render(a.saveErr)
	}
	return view
}

func firstRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}
