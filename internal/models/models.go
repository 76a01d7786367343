package models

import "time"

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusInProgress      Status = "in_progress"
	StatusPendingApproval Status = "pending_approval"
	StatusDone            Status = "done"
	StatusArchived        Status = "archived"
)

// AllStatuses in forward lifecycle order, archived last
var AllStatuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusPendingApproval,
	StatusDone,
	StatusArchived,
}

// Role names recognized by the server
const (
	RoleSuperAdmin     = "super_admin"
	RoleAdmin          = "admin"
	RoleDepartmentHead = "department_head"
	RoleFaculty        = "faculty"
	RoleStaff          = "staff"
)

// Permission names consumed by the lifecycle engine
const (
	PermCreateTask         = "create_task"
	PermEditTask           = "edit_task"
	PermDeleteTask         = "delete_task"
	PermApproveTask        = "approve_task"
	PermAccessArchives     = "access_archives"
	PermViewAllTasks       = "view_all_tasks"
	PermGenerateReports    = "generate_reports"
	PermGenerateDeptReport = "generate_department_reports"
)

// ChangeEntry is one field-level mutation in a task's audit trail.
// Entries are append-only and immutable once written.
type ChangeEntry struct {
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

// Attachment is a file attached to a task. The client only ever appends.
type Attachment struct {
	Filename   string    `json:"filename"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Comment represents a comment on a task. Immutable once created.
type Comment struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	CommentText string    `json:"comment_text"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task represents a single unit of trackable work
type Task struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    Priority      `json:"priority"`
	Status      Status        `json:"status"`
	Department  string        `json:"department"`
	CreatedBy   string        `json:"created_by"`
	AssignedTo  string        `json:"assigned_to"`
	Tags        []string      `json:"tags,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	ChangeLog   []ChangeEntry `json:"change_log,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Comments    []Comment     `json:"-"` // populated when loading task details
}

// Clone returns a deep copy of the task. The engine and store hand out
// copies so a rolled-back edit can never leak into shared state.
func (t Task) Clone() Task {
	c := t
	c.Tags = append([]string(nil), t.Tags...)
	c.Attachments = append([]Attachment(nil), t.Attachments...)
	c.ChangeLog = append([]ChangeEntry(nil), t.ChangeLog...)
	c.Comments = append([]Comment(nil), t.Comments...)
	return c
}

// User is the server-side account record
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Department   string    `json:"department"`
	Roles        []string  `json:"roles"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the identity the client holds after login. The lifecycle
// engine reads it and never writes it.
type Session struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Department  string   `json:"department"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Token       string   `json:"token"`
}

// HasRole reports whether the session carries the named role.
func (s Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the session carries the named permission.
// super_admin implies every permission.
func (s Session) HasPermission(perm string) bool {
	if s.HasRole(RoleSuperAdmin) {
		return true
	}
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// TaskPatch is a partial update to a task. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Department  *string   `json:"department,omitempty"`
	AssignedTo  *string   `json:"assigned_to,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.Department == nil && p.AssignedTo == nil && p.Tags == nil
}

// DepartmentSummary is one department's slice of a task summary report.
type DepartmentSummary struct {
	Department string           `json:"department"`
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByPriority map[Priority]int `json:"by_priority"`
}

// TaskSummaryReport counts tasks per department, broken down by status
// and priority.
type TaskSummaryReport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	GeneratedBy string              `json:"generated_by"`
	Departments []DepartmentSummary `json:"departments"`
}

// DepartmentReport measures one department's throughput: how much of its
// tracked work has reached done or archived.
type DepartmentReport struct {
	Department     string         `json:"department"`
	GeneratedAt    time.Time      `json:"generated_at"`
	GeneratedBy    string         `json:"generated_by"`
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	CompletionRate float64        `json:"completion_rate"`
	ByStatus       map[Status]int `json:"by_status"`
}

// Filter narrows a task list request
type Filter struct {
	Statuses   []Status
	Department string
	Search     string
}
