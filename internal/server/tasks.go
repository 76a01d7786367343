package server

import (
	"database/sql"

	"archtrack/internal/engine"
	"archtrack/internal/models"
)

// CreateTask inserts a new task row.
func (db *DB) CreateTask(t models.Task) error {
	_, err := db.Exec(`
		INSERT INTO tasks (id, title, description, priority, status, department,
			created_by, assigned_to, tags, attachments, change_log, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), t.Department,
		t.CreatedBy, t.AssignedTo, toJSON(t.Tags), toJSON(t.Attachments), toJSON(t.ChangeLog),
		t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTask retrieves a task by ID. Returns engine.ErrNotFound for a missing row.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, title, description, priority, status, department,
			created_by, assigned_to, tags, attachments, change_log, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SaveTask overwrites every mutable column of an existing task. The
// lifecycle engine has already decided what the row should look like.
func (db *DB) SaveTask(t models.Task) error {
	res, err := db.Exec(`
		UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?,
			department = ?, assigned_to = ?, tags = ?, attachments = ?,
			change_log = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Priority), string(t.Status),
		t.Department, t.AssignedTo, toJSON(t.Tags), toJSON(t.Attachments),
		toJSON(t.ChangeLog), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

// ListTasks retrieves all tasks, oldest first. Visibility scoping and
// filtering are the handler's job.
func (db *DB) ListTasks() ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT id, title, description, priority, status, department,
			created_by, assigned_to, tags, attachments, change_log, created_at, updated_at
		FROM tasks
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var priority, status, tags, attachments, changeLog string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &t.Department,
		&t.CreatedBy, &t.AssignedTo, &tags, &attachments, &changeLog, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority)
	t.Status = models.Status(status)
	fromJSON(tags, &t.Tags)
	fromJSON(attachments, &t.Attachments)
	fromJSON(changeLog, &t.ChangeLog)
	return t, nil
}
