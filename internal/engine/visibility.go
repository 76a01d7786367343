package engine

import (
	"strings"

	"archtrack/internal/models"
)

// VisibleTasks filters a task collection down to what the session may see.
//
// Admins and super admins see everything, archived included. Everyone else
// is restricted to their own department, with archived tasks excluded
// unless the caller explicitly asks for them and holds access_archives.
// Archive access is role-scoped, not department-scoped: a user with
// access_archives sees archived tasks from all departments.
func VisibleTasks(tasks []models.Task, sess models.Session, includeArchived bool) []models.Task {
	if sess.HasRole(models.RoleAdmin) || sess.HasRole(models.RoleSuperAdmin) {
		return append([]models.Task(nil), tasks...)
	}

	canSeeArchives := includeArchived && sess.HasPermission(models.PermAccessArchives)

	var out []models.Task
	for _, t := range tasks {
		if t.Status == models.StatusArchived {
			if canSeeArchives {
				out = append(out, t)
			}
			continue
		}
		if t.Department == sess.Department {
			out = append(out, t)
		}
	}
	return out
}

// MatchesFilter reports whether a task satisfies the list filter. Search
// terms match case-insensitively against title and description.
func MatchesFilter(t models.Task, f models.Filter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Department != "" && t.Department != f.Department {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}
