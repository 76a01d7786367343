// Package api is the HTTP client for the remote task store. It is a thin
// pass-through: no retries, no backoff. Transport failures come back as
// *engine.NetworkError, and HTTP status codes are mapped onto the engine's
// error taxonomy so callers handle one set of errors regardless of where a
// rule was enforced.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archtrack/internal/engine"
	"archtrack/internal/models"
)

// Client talks to the task server. Token is set after login and sent as a
// bearer credential on every request.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token.
func (c *Client) Token() string { return c.token }

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the payload returned by login and register.
type LoginResponse struct {
	Token string         `json:"token"`
	User  models.Session `json:"user"`
}

// RegisterRequest carries the fields needed to create an account.
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/users/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return models.Session{}, err
	}
	c.token = resp.Token
	resp.User.Token = resp.Token
	return resp.User, nil
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (models.Session, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/users/register", req, &resp); err != nil {
		return models.Session{}, err
	}
	c.token = resp.Token
	resp.User.Token = resp.Token
	return resp.User, nil
}

type taskListResponse struct {
	Tasks []models.Task `json:"tasks"`
}

// ListTasks fetches tasks matching the filter. Visibility scoping happens
// server-side; the filter only narrows within what the session may see.
func (c *Client) ListTasks(ctx context.Context, f models.Filter) ([]models.Task, error) {
	q := url.Values{}
	for _, s := range f.Statuses {
		q.Add("status", string(s))
	}
	if f.Department != "" {
		q.Set("department", f.Department)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp taskListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// ListArchivedTasks fetches archived tasks. Gated server-side on the
// access_archives permission.
func (c *Client) ListArchivedTasks(ctx context.Context) ([]models.Task, error) {
	return c.ListTasks(ctx, models.Filter{Statuses: []models.Status{models.StatusArchived}})
}

// CreateTask creates a task and returns the server's representation.
func (c *Client) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	var created models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", task, &created); err != nil {
		return models.Task{}, err
	}
	return created, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask sends a partial update and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+id, patch, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ApproveTask requests the pending_approval -> done transition.
func (c *Client) ApproveTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+id+"/approve", nil, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ArchiveTask requests the done -> archived transition.
func (c *Client) ArchiveTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+id+"/archive", nil, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ListComments fetches all comments for a task, oldest first.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// AddComment posts a comment on a task.
func (c *Client) AddComment(ctx context.Context, taskID, text string) (models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/comments", addCommentRequest{Text: text}, &comment); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// Me resolves the client's saved token to a session. Fails with
// ErrPermissionDenied when the token is missing or no longer valid.
func (c *Client) Me(ctx context.Context) (models.Session, error) {
	var sess models.Session
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// TaskSummaryReport fetches per-department task counts. An empty
// department means "whatever the session may see".
func (c *Client) TaskSummaryReport(ctx context.Context, department string) (models.TaskSummaryReport, error) {
	path := "/reports/task-summary"
	if department != "" {
		path += "?" + url.Values{"department": {department}}.Encode()
	}
	var report models.TaskSummaryReport
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return models.TaskSummaryReport{}, err
	}
	return report, nil
}

// DepartmentReport fetches the completion-rate report for a department.
func (c *Client) DepartmentReport(ctx context.Context, department string) (models.DepartmentReport, error) {
	var report models.DepartmentReport
	if err := c.do(ctx, http.MethodGet, "/reports/department/"+url.PathEscape(department), nil, &report); err != nil {
		return models.DepartmentReport{}, err
	}
	return report, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &engine.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError maps an HTTP failure onto the engine taxonomy. The server runs
// the same lifecycle rules, so its rejections line up with the local ones.
func apiError(resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	var base error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = engine.ErrPermissionDenied
	case http.StatusNotFound:
		base = engine.ErrNotFound
	case http.StatusConflict:
		base = engine.ErrInvalidTransition
	case http.StatusUnprocessableEntity:
		base = engine.ErrEmptyComment
	default:
		if payload.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}
	if payload.Error != "" {
		return fmt.Errorf("%s: %w", payload.Error, base)
	}
	return base
}
