package server

import (
	"sort"

	"archtrack/internal/models"
)

// rolePermissions maps each role to its directly-granted permissions.
var rolePermissions = map[string][]string{
	models.RoleSuperAdmin: {
		"manage_users", "manage_roles", "manage_departments",
		"create_task", "edit_task", "delete_task", "view_all_tasks",
		"approve_task", "generate_reports", "access_archives",
		"view_department_tasks", "view_assigned_tasks",
	},
	models.RoleAdmin: {
		"manage_users", "manage_roles",
		"create_task", "edit_task", "view_all_tasks",
		"approve_task", "generate_reports", "access_archives",
		"view_department_tasks", "view_assigned_tasks",
	},
	models.RoleDepartmentHead: {
		"create_task", "edit_task", "view_department_tasks",
		"approve_task", "generate_reports", "generate_department_reports",
		"view_assigned_tasks",
	},
	models.RoleFaculty: {
		"create_task", "edit_task", "view_department_tasks",
		"approve_task", "generate_reports",
	},
	models.RoleStaff: {
		"create_task", "edit_task", "view_assigned_tasks",
		"generate_reports",
	},
}

// roleInherits lists roles whose permission sets are folded in. Only
// faculty inherits anything (the staff set).
var roleInherits = map[string][]string{
	models.RoleFaculty: {models.RoleStaff},
}

// PermissionsForRoles flattens a role list into a sorted, deduplicated
// permission set, following inheritance.
func PermissionsForRoles(roles []string) []string {
	seen := make(map[string]bool)
	var walk func(role string)
	walk = func(role string) {
		for _, p := range rolePermissions[role] {
			seen[p] = true
		}
		for _, inherited := range roleInherits[role] {
			walk(inherited)
		}
	}
	for _, r := range roles {
		walk(r)
	}

	perms := make([]string, 0, len(seen))
	for p := range seen {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// sessionForUser builds the engine-facing session for a user record.
func sessionForUser(u *models.User) models.Session {
	return models.Session{
		UserID:      u.ID,
		Name:        u.Name,
		Department:  u.Department,
		Roles:       append([]string(nil), u.Roles...),
		Permissions: PermissionsForRoles(u.Roles),
	}
}
