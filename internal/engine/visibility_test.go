package engine

import (
	"testing"

	"archtrack/internal/models"
)

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: "t1", Title: "CSE active", Department: "CSE", Status: models.StatusInProgress},
		{ID: "t2", Title: "CSE archived", Department: "CSE", Status: models.StatusArchived},
		{ID: "t3", Title: "EEE active", Department: "EEE", Status: models.StatusNotStarted},
		{ID: "t4", Title: "EEE archived", Department: "EEE", Status: models.StatusArchived},
	}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestVisibleTasks(t *testing.T) {
	tests := []struct {
		name            string
		sess            models.Session
		includeArchived bool
		want            []string
	}{
		{
			name: "admin sees everything",
			sess: models.Session{UserID: "a", Roles: []string{models.RoleAdmin}},
			want: []string{"t1", "t2", "t3", "t4"},
		},
		{
			name: "super admin sees everything",
			sess: models.Session{UserID: "s", Roles: []string{models.RoleSuperAdmin}},
			want: []string{"t1", "t2", "t3", "t4"},
		},
		{
			name: "staff sees own department, no archives",
			sess: models.Session{UserID: "u", Department: "CSE", Roles: []string{models.RoleStaff}},
			want: []string{"t1"},
		},
		{
			name:            "staff asking for archives without permission",
			sess:            models.Session{UserID: "u", Department: "CSE", Roles: []string{models.RoleStaff}},
			includeArchived: true,
			want:            []string{"t1"},
		},
		{
			name: "archive permission is not department scoped",
			sess: models.Session{
				UserID: "u", Department: "CSE",
				Roles:       []string{models.RoleDepartmentHead},
				Permissions: []string{models.PermAccessArchives},
			},
			includeArchived: true,
			want:            []string{"t1", "t2", "t4"},
		},
		{
			name: "archive permission without the request flag",
			sess: models.Session{
				UserID: "u", Department: "CSE",
				Roles:       []string{models.RoleDepartmentHead},
				Permissions: []string{models.PermAccessArchives},
			},
			want: []string{"t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(VisibleTasks(sampleTasks(), tt.sess, tt.includeArchived))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	task := models.Task{
		Title:       "Digitize admission records",
		Description: "Scan and index the 2019 batch",
		Department:  "CSE",
		Status:      models.StatusInProgress,
	}

	tests := []struct {
		name   string
		filter models.Filter
		want   bool
	}{
		{"empty filter", models.Filter{}, true},
		{"matching status", models.Filter{Statuses: []models.Status{models.StatusInProgress}}, true},
		{"status set with match", models.Filter{Statuses: []models.Status{models.StatusDone, models.StatusInProgress}}, true},
		{"non-matching status", models.Filter{Statuses: []models.Status{models.StatusDone}}, false},
		{"matching department", models.Filter{Department: "CSE"}, true},
		{"wrong department", models.Filter{Department: "EEE"}, false},
		{"search hits title case-insensitively", models.Filter{Search: "ADMISSION"}, true},
		{"search hits description", models.Filter{Search: "2019 batch"}, true},
		{"search misses", models.Filter{Search: "payroll"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesFilter(task, tt.filter); got != tt.want {
				t.Errorf("MatchesFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}
