package server

import (
	"database/sql"
	"errors"
	"time"

	"archtrack/internal/models"
)

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned on a failed login. The message never
// distinguishes unknown email from wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CreateUser inserts a new user row.
func (db *DB) CreateUser(u models.User) error {
	_, err := db.Exec(`
		INSERT INTO users (id, name, email, password_hash, department, roles, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Department, toJSON(u.Roles), u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByEmail retrieves a user by email, or nil when none exists.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	return db.getUser("SELECT id, name, email, password_hash, department, roles, is_active, created_at, updated_at FROM users WHERE email = ?", email)
}

// GetUserByID retrieves a user by id, or nil when none exists.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	return db.getUser("SELECT id, name, email, password_hash, department, roles, is_active, created_at, updated_at FROM users WHERE id = ?", id)
}

func (db *DB) getUser(query string, arg any) (*models.User, error) {
	u := &models.User{}
	var roles string
	err := db.QueryRow(query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Department, &roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fromJSON(roles, &u.Roles)
	return u, nil
}

// CreateSession records a bearer token for a user.
func (db *DB) CreateSession(token, userID string) error {
	_, err := db.Exec(`
		INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)
	`, token, userID, time.Now().UTC())
	return err
}

// GetSessionUser resolves a bearer token to its user, or nil when the
// token is unknown.
func (db *DB) GetSessionUser(token string) (*models.User, error) {
	var userID string
	err := db.QueryRow("SELECT user_id FROM sessions WHERE token = ?", token).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.GetUserByID(userID)
}
