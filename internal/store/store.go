// Package store owns the client's in-memory task collection. The remote
// server is authoritative; everything here is a possibly-stale copy kept
// responsive with optimistic updates. Every mutation is two-phase: apply
// the engine's result locally, call the server, then either adopt the
// server's representation or roll back to the pre-call state.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"archtrack/internal/engine"
	"archtrack/internal/models"
)

// Remote is the slice of the API client the store depends on.
type Remote interface {
	ListTasks(ctx context.Context, f models.Filter) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	ApproveTask(ctx context.Context, id string) (models.Task, error)
	ArchiveTask(ctx context.Context, id string) (models.Task, error)
	ListComments(ctx context.Context, taskID string) ([]models.Comment, error)
	AddComment(ctx context.Context, taskID, text string) (models.Comment, error)
}

// Store is the single owner of the local task collection. Bubbletea runs
// commands in goroutines, so access is serialized with a mutex even though
// message handling itself is single-threaded.
type Store struct {
	mu      sync.Mutex
	remote  Remote
	session models.Session

	tasks    []models.Task
	comments map[string][]models.Comment // newest first

	// fetch sequencing: a response is applied only if no newer fetch for
	// the same key has already landed. Arrival order is not completion
	// order.
	issued  map[string]uint64
	applied map[string]uint64
}

const listKey = "__list__"

// New creates a store bound to a remote and a session.
func New(remote Remote, session models.Session) *Store {
	return &Store{
		remote:   remote,
		session:  session,
		comments: make(map[string][]models.Comment),
		issued:   make(map[string]uint64),
		applied:  make(map[string]uint64),
	}
}

// Session returns the session the store was built with.
func (s *Store) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Store) beginFetch(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[key]++
	return s.issued[key]
}

// commitFetch reports whether a response with the given sequence may be
// applied, recording it as applied if so.
func (s *Store) commitFetch(key string, seq uint64) bool {
	if seq <= s.applied[key] {
		return false
	}
	s.applied[key] = seq
	return true
}

// Refresh fetches the task list and replaces the local collection, unless
// a newer refresh already landed, in which case the response is discarded.
func (s *Store) Refresh(ctx context.Context, f models.Filter) error {
	seq := s.beginFetch(listKey)

	tasks, err := s.remote.ListTasks(ctx, f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.commitFetch(listKey, seq) {
		return nil
	}
	s.tasks = tasks
	return nil
}

// Tasks returns the tasks visible to the session, honoring department
// scoping and the archived gate.
func (s *Store) Tasks(includeArchived bool) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.VisibleTasks(s.tasks, s.session, includeArchived)
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return models.Task{}, false
}

// Create asks the server to create a task and appends the server's copy.
// Creation has no speculative phase: there is no local row to show until
// the server has assigned an id.
func (s *Store) Create(ctx context.Context, task models.Task) (models.Task, error) {
	created, err := s.remote.CreateTask(ctx, task)
	if err != nil {
		return models.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, created)
	return created, nil
}

// Edit applies a patch optimistically and confirms it with the server.
// On remote failure the pre-call task is restored and the error surfaced.
// On success the server's representation wins, change log included.
func (s *Store) Edit(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	prev, ok := s.Get(id)
	if !ok {
		return models.Task{}, engine.ErrNotFound
	}

	speculative, err := engine.ApplyEdit(prev, patch, s.Session())
	if err != nil {
		return models.Task{}, err
	}
	s.replace(speculative)

	confirmed, err := s.remote.UpdateTask(ctx, id, patch)
	if err != nil {
		s.replace(prev)
		return models.Task{}, err
	}
	s.replace(confirmed)
	return confirmed, nil
}

// Approve runs the approval transition with the two-phase pattern.
func (s *Store) Approve(ctx context.Context, id string) (models.Task, error) {
	return s.transition(ctx, id, engine.Approve, s.remote.ApproveTask)
}

// Archive runs the archival transition with the two-phase pattern.
func (s *Store) Archive(ctx context.Context, id string) (models.Task, error) {
	return s.transition(ctx, id, engine.Archive, s.remote.ArchiveTask)
}

func (s *Store) transition(
	ctx context.Context,
	id string,
	local func(models.Task, models.Session) (models.Task, error),
	remote func(context.Context, string) (models.Task, error),
) (models.Task, error) {
	prev, ok := s.Get(id)
	if !ok {
		return models.Task{}, engine.ErrNotFound
	}

	speculative, err := local(prev, s.Session())
	if err != nil {
		return models.Task{}, err
	}
	s.replace(speculative)

	confirmed, err := remote(ctx, id)
	if err != nil {
		s.replace(prev)
		return models.Task{}, err
	}
	s.replace(confirmed)
	return confirmed, nil
}

// AddComment validates locally, prepends a speculative comment, and swaps
// in the server's copy (with its id and timestamp) on success.
func (s *Store) AddComment(ctx context.Context, id, text string) (models.Comment, error) {
	task, ok := s.Get(id)
	if !ok {
		return models.Comment{}, engine.ErrNotFound
	}

	speculative, err := engine.NewComment(task, s.Session(), text)
	if err != nil {
		return models.Comment{}, err
	}
	speculative.ID = "pending-" + uuid.NewString()

	s.mu.Lock()
	s.comments[id] = append([]models.Comment{speculative}, s.comments[id]...)
	s.mu.Unlock()

	confirmed, err := s.remote.AddComment(ctx, id, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	// A comment fetch may have replaced the cached slice while the call
	// was in flight, so the speculative entry is dropped by id, never by
	// position.
	s.dropComment(id, speculative.ID)
	if err != nil {
		return models.Comment{}, err
	}
	s.upsertComment(id, confirmed)
	return confirmed, nil
}

// dropComment removes the comment with the given id, if still cached.
// Caller holds the mutex.
func (s *Store) dropComment(taskID, commentID string) {
	cached := s.comments[taskID]
	for i, c := range cached {
		if c.ID == commentID {
			s.comments[taskID] = append(cached[:i:i], cached[i+1:]...)
			return
		}
	}
}

// upsertComment prepends the comment unless a fetch already delivered it.
// Caller holds the mutex.
func (s *Store) upsertComment(taskID string, c models.Comment) {
	for i, existing := range s.comments[taskID] {
		if existing.ID == c.ID {
			s.comments[taskID][i] = c
			return
		}
	}
	s.comments[taskID] = append([]models.Comment{c}, s.comments[taskID]...)
}

// LoadComments fetches a task's comments, newest first, seq-guarded per
// task so a slow older fetch cannot clobber a newer one.
func (s *Store) LoadComments(ctx context.Context, id string) error {
	seq := s.beginFetch("comments:" + id)

	comments, err := s.remote.ListComments(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.commitFetch("comments:"+id, seq) {
		return nil
	}
	// server returns oldest first; display wants newest first
	reversed := make([]models.Comment, len(comments))
	for i, c := range comments {
		reversed[len(comments)-1-i] = c
	}
	s.comments[id] = reversed
	return nil
}

// Comments returns the cached comments for a task, newest first.
func (s *Store) Comments(id string) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment(nil), s.comments[id]...)
}

func (s *Store) replace(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = task
			return
		}
	}
	s.tasks = append(s.tasks, task)
}
