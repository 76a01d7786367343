package server

import (
	"archtrack/internal/models"
)

// CreateComment inserts a comment row. Comments are never updated or
// deleted; the client treats them as immutable and so does the store.
func (db *DB) CreateComment(c models.Comment) error {
	_, err := db.Exec(`
		INSERT INTO comments (id, task_id, comment_text, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.TaskID, c.CommentText, c.CreatedBy, c.CreatedAt)
	return err
}

// GetTaskComments retrieves all comments for a task, oldest first.
func (db *DB) GetTaskComments(taskID string) ([]models.Comment, error) {
	rows, err := db.Query(`
		SELECT id, task_id, comment_text, created_by, created_at
		FROM comments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.CommentText, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
