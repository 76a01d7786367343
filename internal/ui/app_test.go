package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archtrack/internal/api"
	"archtrack/internal/config"
	"archtrack/internal/engine"
	"archtrack/internal/models"
	"archtrack/internal/ui/views"
)

func testSession() models.Session {
	return models.Session{
		UserID:      "u1",
		Name:        "Test Staffer",
		Department:  "CSE",
		Roles:       []string{models.RoleStaff},
		Permissions: []string{models.PermCreateTask, models.PermEditTask},
	}
}

func TestConfigSaveFailureSurfaced(t *testing.T) {
	// XDG_CONFIG_HOME pointing at a regular file makes every save fail
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", blocker)

	app := NewApp(&config.Config{}, api.New("http://localhost:0"))
	app.Update(views.LoggedIn{Session: testSession()})

	if !strings.Contains(app.View(), "config not saved") {
		t.Error("save failure not visible in the view")
	}
}

func TestConfigSaveErrorClearsOnSuccess(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	app := NewApp(&config.Config{}, api.New("http://localhost:0"))
	app.saveErr = "config not saved: earlier failure"
	app.Update(views.LoggedOut{})

	if strings.Contains(app.View(), "config not saved") {
		t.Error("stale save error still visible after a successful save")
	}
}

func TestSessionRestoreOpensTasks(t *testing.T) {
	client := api.New("http://localhost:0")
	client.SetToken("saved-token")

	app := NewApp(&config.Config{AuthToken: "saved-token"}, client)
	app.Update(sessionRestoredMsg{session: testSession()})

	if app.currentView != ViewTasks {
		t.Errorf("view = %v, want ViewTasks", app.currentView)
	}
}

func TestStaleTokenFallsBackToLogin(t *testing.T) {
	client := api.New("http://localhost:0")
	client.SetToken("stale-token")

	app := NewApp(&config.Config{AuthToken: "stale-token"}, client)
	app.Update(sessionRestoredMsg{err: engine.ErrPermissionDenied})

	if app.currentView != ViewLogin {
		t.Errorf("view = %v, want ViewLogin", app.currentView)
	}
	if client.Token() != "" {
		t.Error("stale token not cleared from the client")
	}
}
