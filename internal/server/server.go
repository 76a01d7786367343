// Package server is the reference implementation of the remote task store.
// It enforces the same lifecycle rules as the client through the shared
// engine package: the client's checks are advisory UX, the checks here are
// the ones that count.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"archtrack/internal/engine"
	"archtrack/internal/models"
)

// Server wires the sqlite store to the HTTP surface.
type Server struct {
	db     *DB
	router chi.Router
}

// New builds a server around an open database.
func New(db *DB) *Server {
	s := &Server{db: db}

	r := chi.NewRouter()
	r.Post("/users/register", s.handleRegister)
	r.Post("/users/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/users/me", s.handleMe)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks/{taskID}", s.handleGetTask)
		r.Put("/tasks/{taskID}", s.handleUpdateTask)
		r.Post("/tasks/{taskID}/approve", s.handleApproveTask)
		r.Post("/tasks/{taskID}/archive", s.handleArchiveTask)
		r.Get("/tasks/{taskID}/comments", s.handleListComments)
		r.Post("/tasks/{taskID}/comments", s.handleAddComment)
		r.Get("/reports/task-summary", s.handleTaskSummary)
		r.Get("/reports/department/{department}", s.handleDepartmentReport)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("task server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  models.Session `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	existing, err := s.db.GetUserByEmail(req.Email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, ErrEmailTaken.Error())
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.internalError(w, err)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Department:   req.Department,
		Roles:        []string{models.RoleStaff},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.CreateUser(user); err != nil {
		s.internalError(w, err)
		return
	}

	s.issueToken(w, &user, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.db.GetUserByEmail(req.Email)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if user == nil || !user.IsActive || !verifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	s.issueToken(w, user, http.StatusOK)
}

func (s *Server) issueToken(w http.ResponseWriter, user *models.User, code int) {
	token := newToken()
	if err := s.db.CreateSession(token, user.ID); err != nil {
		s.internalError(w, err)
		return
	}
	sess := sessionForUser(user)
	sess.Token = token
	writeJSONStatus(w, code, authResponse{Token: token, User: sess})
}

// handleMe resolves the presented token back to its session, letting a
// client restore a saved login without re-prompting for credentials.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, sessionFrom(r.Context()))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	filter := models.Filter{
		Department: r.URL.Query().Get("department"),
		Search:     r.URL.Query().Get("search"),
	}
	includeArchived := false
	for _, raw := range r.URL.Query()["status"] {
		status := models.Status(raw)
		filter.Statuses = append(filter.Statuses, status)
		if status == models.StatusArchived {
			includeArchived = true
		}
	}

	all, err := s.db.ListTasks()
	if err != nil {
		s.internalError(w, err)
		return
	}

	var tasks []models.Task
	for _, t := range engine.VisibleTasks(all, sess, includeArchived) {
		if engine.MatchesFilter(t, filter) {
			tasks = append(tasks, t)
		}
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, map[string][]models.Task{"tasks": tasks})
}

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	Department  string          `json:"department"`
	AssignedTo  string          `json:"assigned_to"`
	Tags        []string        `json:"tags"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.HasPermission(models.PermCreateTask) {
		writeError(w, http.StatusForbidden, engine.ErrPermissionDenied.Error())
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.Department == "" {
		req.Department = sess.Department
	}

	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      models.StatusNotStarted,
		Department:  req.Department,
		CreatedBy:   sess.UserID,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateTask(task); err != nil {
		s.internalError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.db.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch body")
		return
	}

	task, err := s.db.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.taskError(w, err)
		return
	}

	updated, err := engine.ApplyEdit(*task, patch, sess)
	if err != nil {
		s.taskError(w, err)
		return
	}
	if err := s.db.SaveTask(updated); err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, updated)
}

func (s *Server) handleApproveTask(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, engine.Approve)
}

func (s *Server) handleArchiveTask(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, engine.Archive)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request,
	apply func(models.Task, models.Session) (models.Task, error)) {
	sess := sessionFrom(r.Context())

	task, err := s.db.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.taskError(w, err)
		return
	}

	updated, err := apply(*task, sess)
	if err != nil {
		s.taskError(w, err)
		return
	}
	if err := s.db.SaveTask(updated); err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, updated)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if _, err := s.db.GetTask(taskID); err != nil {
		s.taskError(w, err)
		return
	}

	comments, err := s.db.GetTaskComments(taskID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	writeJSON(w, comments)
}

type addCommentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment body")
		return
	}

	task, err := s.db.GetTask(taskID)
	if err != nil {
		s.taskError(w, err)
		return
	}

	comment, err := engine.NewComment(*task, sess, req.Text)
	if err != nil {
		s.taskError(w, err)
		return
	}
	comment.ID = uuid.NewString()
	if err := s.db.CreateComment(comment); err != nil {
		s.internalError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, comment)
}

// taskError maps engine failures onto status codes. Anything outside the
// taxonomy is a 500.
func (s *Server) taskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrEmptyComment):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, map[string]string{"error": msg})
}
