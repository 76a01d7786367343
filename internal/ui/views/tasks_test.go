package views

import (
	"reflect"
	"testing"

	"archtrack/internal/models"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ,  , ", nil},
		{"records", []string{"records"}},
		{"records, urgent", []string{"records", "urgent"}},
		{" a ,b,  c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := parseTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status models.Status
		want   string
	}{
		{models.StatusNotStarted, "Not Started"},
		{models.StatusInProgress, "In Progress"},
		{models.StatusPendingApproval, "Pending Approval"},
		{models.StatusDone, "Done"},
		{models.StatusArchived, "Archived"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.status); got != tt.want {
			t.Errorf("statusLabel(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestNextPriorityCycles(t *testing.T) {
	p := models.PriorityLow
	seen := map[models.Priority]bool{}
	for i := 0; i < 3; i++ {
		seen[p] = true
		p = nextPriority(p)
	}
	if p != models.PriorityLow {
		t.Errorf("cycle did not return to low, got %s", p)
	}
	if len(seen) != 3 {
		t.Errorf("cycle visited %d priorities, want 3", len(seen))
	}
}

func TestNextStatusSkipsArchived(t *testing.T) {
	s := models.StatusNotStarted
	for i := 0; i < 8; i++ {
		s = nextStatus(s)
		if s == models.StatusArchived {
			t.Fatal("status cycle offered archived")
		}
	}
}

func TestBuildPatch(t *testing.T) {
	task := models.Task{
		ID:          "t1",
		Title:       "Digitize records",
		Description: "scan the cabinet",
		Priority:    models.PriorityMedium,
		Status:      models.StatusInProgress,
		AssignedTo:  "u2",
		Tags:        []string{"records"},
	}

	v := NewTaskListView(nil)
	v.startEditTask(task)

	// untouched form produces an empty patch
	if patch := v.buildPatch(task); !patch.IsEmpty() {
		t.Errorf("patch from untouched form not empty: %+v", patch)
	}

	// change title and tags
	v.editTitle.SetValue("Digitize all records")
	v.editTags.SetValue("records, urgent")
	patch := v.buildPatch(task)

	if patch.Title == nil || *patch.Title != "Digitize all records" {
		t.Errorf("patch.Title = %v", patch.Title)
	}
	if patch.Tags == nil || !reflect.DeepEqual(*patch.Tags, []string{"records", "urgent"}) {
		t.Errorf("patch.Tags = %v", patch.Tags)
	}
	if patch.Description != nil || patch.Priority != nil || patch.Status != nil || patch.AssignedTo != nil {
		t.Errorf("unchanged fields set in patch: %+v", patch)
	}

	// status override goes through the patch too
	v.startEditTask(task)
	v.editStatus = models.StatusPendingApproval
	patch = v.buildPatch(task)
	if patch.Status == nil || *patch.Status != models.StatusPendingApproval {
		t.Errorf("patch.Status = %v", patch.Status)
	}
}

func TestAvailableActions(t *testing.T) {
	editor := models.Session{
		UserID:      "u1",
		Permissions: []string{models.PermEditTask},
	}
	approver := models.Session{
		UserID:      "u9",
		Permissions: []string{models.PermApproveTask, models.PermAccessArchives},
	}

	pending := models.Task{ID: "t1", Status: models.StatusPendingApproval, CreatedBy: "u1"}
	done := models.Task{ID: "t2", Status: models.StatusDone, CreatedBy: "u1"}

	if got := availableActions(editor, pending); !reflect.DeepEqual(got, []string{"edit"}) {
		t.Errorf("editor actions = %v, want [edit]", got)
	}
	if got := availableActions(approver, pending); !reflect.DeepEqual(got, []string{"approve"}) {
		t.Errorf("approver actions on pending = %v, want [approve]", got)
	}
	if got := availableActions(approver, done); !reflect.DeepEqual(got, []string{"archive"}) {
		t.Errorf("approver actions on done = %v, want [archive]", got)
	}
}
