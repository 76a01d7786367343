// Package engine implements the task lifecycle rules: which transitions,
// edits, approvals and archival actions a session may perform on a task,
// and the audit trail those mutations leave behind. Decisions made here
// are advisory for the client; the server runs the same checks before
// persisting anything.
package engine

import (
	"strings"
	"time"

	"archtrack/internal/models"
)

// now is swapped out in tests
var now = time.Now

// editableFields is the canonical order in which field changes are logged.
// A patch touching several fields emits one change entry per field, in
// this order, regardless of how the patch was built.
var editableFields = []string{
	"title",
	"description",
	"priority",
	"status",
	"department",
	"assigned_to",
	"tags",
}

// CanEdit reports whether the session may edit the task. Editing requires
// the edit_task permission and a stake in the task: the editor must be
// its creator or its assignee.
func CanEdit(sess models.Session, task models.Task) bool {
	if !sess.HasPermission(models.PermEditTask) {
		return false
	}
	return task.CreatedBy == sess.UserID || task.AssignedTo == sess.UserID
}

// CanApprove reports whether the session may approve the task right now.
func CanApprove(sess models.Session, task models.Task) bool {
	return sess.HasPermission(models.PermApproveTask) &&
		task.Status == models.StatusPendingApproval
}

// CanArchive reports whether the session may archive the task right now.
func CanArchive(sess models.Session, task models.Task) bool {
	return sess.HasPermission(models.PermAccessArchives) &&
		task.Status == models.StatusDone
}

// ApplyEdit validates the patch against the session and returns an updated
// copy of the task. Each field the patch actually changes appends one
// change-log entry; unchanged fields leave no trace. An empty patch is a
// no-op. Status changes through a patch are the manual override path and
// only require edit rights; Approve and Archive carry their own guards.
func ApplyEdit(task models.Task, patch models.TaskPatch, sess models.Session) (models.Task, error) {
	if !CanEdit(sess, task) {
		return task, ErrPermissionDenied
	}
	if patch.IsEmpty() {
		return task.Clone(), nil
	}

	updated := task.Clone()
	ts := now()

	for _, field := range editableFields {
		old, new, changed := fieldChange(updated, patch, field)
		if !changed {
			continue
		}
		applyField(&updated, patch, field)
		updated.ChangeLog = append(updated.ChangeLog, models.ChangeEntry{
			Field:     field,
			OldValue:  old,
			NewValue:  new,
			ChangedAt: ts,
			ChangedBy: sess.UserID,
		})
	}

	if len(updated.ChangeLog) > len(task.ChangeLog) {
		updated.UpdatedAt = ts
	}
	return updated, nil
}

// Approve moves a pending task to done. The permission bit alone decides
// PermissionDenied; a permitted caller on a wrong-status task gets
// InvalidTransition so the feedback names the real problem.
func Approve(task models.Task, sess models.Session) (models.Task, error) {
	if !sess.HasPermission(models.PermApproveTask) {
		return task, ErrPermissionDenied
	}
	if task.Status != models.StatusPendingApproval {
		return task, ErrInvalidTransition
	}
	return transition(task, sess, models.StatusDone), nil
}

// Archive moves a done task to archived.
func Archive(task models.Task, sess models.Session) (models.Task, error) {
	if !sess.HasPermission(models.PermAccessArchives) {
		return task, ErrPermissionDenied
	}
	if task.Status != models.StatusDone {
		return task, ErrInvalidTransition
	}
	return transition(task, sess, models.StatusArchived), nil
}

func transition(task models.Task, sess models.Session, to models.Status) models.Task {
	updated := task.Clone()
	ts := now()
	updated.ChangeLog = append(updated.ChangeLog, models.ChangeEntry{
		Field:     "status",
		OldValue:  string(task.Status),
		NewValue:  string(to),
		ChangedAt: ts,
		ChangedBy: sess.UserID,
	})
	updated.Status = to
	updated.UpdatedAt = ts
	return updated
}

// NewComment validates and builds a comment on the task, attributed to the
// session. Comments are immutable; ordering for display (newest first) is
// the caller's concern, not a stored property.
func NewComment(task models.Task, sess models.Session, text string) (models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, ErrEmptyComment
	}
	return models.Comment{
		TaskID:      task.ID,
		CommentText: text,
		CreatedBy:   sess.UserID,
		CreatedAt:   now(),
	}, nil
}

func fieldChange(t models.Task, p models.TaskPatch, field string) (old, new string, changed bool) {
	switch field {
	case "title":
		if p.Title != nil && *p.Title != t.Title {
			return t.Title, *p.Title, true
		}
	case "description":
		if p.Description != nil && *p.Description != t.Description {
			return t.Description, *p.Description, true
		}
	case "priority":
		if p.Priority != nil && *p.Priority != t.Priority {
			return string(t.Priority), string(*p.Priority), true
		}
	case "status":
		if p.Status != nil && *p.Status != t.Status {
			return string(t.Status), string(*p.Status), true
		}
	case "department":
		if p.Department != nil && *p.Department != t.Department {
			return t.Department, *p.Department, true
		}
	case "assigned_to":
		if p.AssignedTo != nil && *p.AssignedTo != t.AssignedTo {
			return t.AssignedTo, *p.AssignedTo, true
		}
	case "tags":
		if p.Tags != nil && !equalTags(t.Tags, *p.Tags) {
			return strings.Join(t.Tags, ", "), strings.Join(*p.Tags, ", "), true
		}
	}
	return "", "", false
}

func applyField(t *models.Task, p models.TaskPatch, field string) {
	switch field {
	case "title":
		t.Title = *p.Title
	case "description":
		t.Description = *p.Description
	case "priority":
		t.Priority = *p.Priority
	case "status":
		t.Status = *p.Status
	case "department":
		t.Department = *p.Department
	case "assigned_to":
		t.AssignedTo = *p.AssignedTo
	case "tags":
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
}

// equalTags compares tag lists in display order. Order is preserved for
// display, so a reorder counts as a change.
func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
