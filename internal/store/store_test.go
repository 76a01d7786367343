package store

import (
	"context"
	"errors"
	"testing"

	"archtrack/internal/engine"
	"archtrack/internal/models"
)

// fakeRemote scripts server behavior per call. Zero-value fields mean
// "succeed and echo back what the engine would have produced".
type fakeRemote struct {
	listResults [][]models.Task // consumed in call order
	listCalls   int

	updateResult *models.Task
	updateErr    error

	approveResult *models.Task
	approveErr    error

	archiveResult *models.Task
	archiveErr    error

	commentResult *models.Comment
	commentErr    error
	onAddComment  func() // runs while the add is "in flight"

	listComments []models.Comment
}

func (f *fakeRemote) ListTasks(ctx context.Context, _ models.Filter) ([]models.Task, error) {
	i := f.listCalls
	f.listCalls++
	if i < len(f.listResults) {
		return f.listResults[i], nil
	}
	return nil, nil
}

func (f *fakeRemote) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	t.ID = "server-id"
	return t, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (models.Task, error) {
	if f.updateErr != nil {
		return models.Task{}, f.updateErr
	}
	return *f.updateResult, nil
}

func (f *fakeRemote) ApproveTask(ctx context.Context, id string) (models.Task, error) {
	if f.approveErr != nil {
		return models.Task{}, f.approveErr
	}
	return *f.approveResult, nil
}

func (f *fakeRemote) ArchiveTask(ctx context.Context, id string) (models.Task, error) {
	if f.archiveErr != nil {
		return models.Task{}, f.archiveErr
	}
	return *f.archiveResult, nil
}

func (f *fakeRemote) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	return f.listComments, nil
}

func (f *fakeRemote) AddComment(ctx context.Context, taskID, text string) (models.Comment, error) {
	if f.onAddComment != nil {
		f.onAddComment()
	}
	if f.commentErr != nil {
		return models.Comment{}, f.commentErr
	}
	if f.commentResult != nil {
		return *f.commentResult, nil
	}
	return models.Comment{ID: "c-server", TaskID: taskID, CommentText: text}, nil
}

func editorSession() models.Session {
	return models.Session{
		UserID:      "u1",
		Department:  "CSE",
		Roles:       []string{models.RoleStaff},
		Permissions: []string{models.PermEditTask, models.PermApproveTask, models.PermAccessArchives},
	}
}

func seedTask(status models.Status) models.Task {
	return models.Task{
		ID:         "t1",
		Title:      "Digitize records",
		Status:     status,
		Department: "CSE",
		CreatedBy:  "u1",
	}
}

func newSeeded(remote *fakeRemote, status models.Status) *Store {
	s := New(remote, editorSession())
	s.tasks = []models.Task{seedTask(status)}
	return s
}

func TestEdit_ServerCopyWins(t *testing.T) {
	serverTask := seedTask(models.StatusNotStarted)
	serverTask.Title = "Digitize records (v2)"
	serverTask.ChangeLog = []models.ChangeEntry{{Field: "title"}}

	remote := &fakeRemote{updateResult: &serverTask}
	s := newSeeded(remote, models.StatusNotStarted)

	title := "renamed locally"
	got, err := s.Edit(context.Background(), "t1", models.TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// server's representation replaces the speculative one wholesale
	if got.Title != "Digitize records (v2)" {
		t.Errorf("title = %q, want server copy", got.Title)
	}
	stored, _ := s.Get("t1")
	if stored.Title != "Digitize records (v2)" {
		t.Errorf("stored title = %q, want server copy", stored.Title)
	}
}

func TestEdit_RollbackOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{updateErr: &engine.NetworkError{Op: "PUT /tasks/t1", Err: errors.New("timeout")}}
	s := newSeeded(remote, models.StatusNotStarted)

	title := "renamed locally"
	_, err := s.Edit(context.Background(), "t1", models.TaskPatch{Title: &title})

	var netErr *engine.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want *engine.NetworkError", err)
	}
	stored, _ := s.Get("t1")
	if stored.Title != "Digitize records" {
		t.Errorf("title = %q, want pre-call value restored", stored.Title)
	}
	if len(stored.ChangeLog) != 0 {
		t.Errorf("rollback left %d change entries behind", len(stored.ChangeLog))
	}
}

func TestEdit_LocalDenialSkipsRemote(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, models.Session{UserID: "u-nobody", Permissions: []string{models.PermEditTask}})
	s.tasks = []models.Task{seedTask(models.StatusNotStarted)}

	title := "x"
	_, err := s.Edit(context.Background(), "t1", models.TaskPatch{Title: &title})
	if !errors.Is(err, engine.ErrPermissionDenied) {
		t.Errorf("error = %v, want ErrPermissionDenied", err)
	}
}

func TestEdit_UnknownTask(t *testing.T) {
	s := New(&fakeRemote{}, editorSession())

	title := "x"
	_, err := s.Edit(context.Background(), "missing", models.TaskPatch{Title: &title})
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestApprove_EndToEnd(t *testing.T) {
	serverTask := seedTask(models.StatusDone)
	serverTask.ChangeLog = []models.ChangeEntry{{Field: "status", OldValue: "pending_approval", NewValue: "done"}}

	remote := &fakeRemote{approveResult: &serverTask}
	s := newSeeded(remote, models.StatusPendingApproval)

	got, err := s.Approve(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusDone {
		t.Errorf("status = %s, want done", got.Status)
	}

	// after confirmation the archive action becomes available and edit
	// still depends on ownership
	stored, _ := s.Get("t1")
	if !engine.CanArchive(s.Session(), stored) {
		t.Error("archive should be available after approval")
	}
	if engine.CanApprove(s.Session(), stored) {
		t.Error("approve should no longer be available")
	}
	if !engine.CanEdit(s.Session(), stored) {
		t.Error("creator should still be able to edit")
	}
}

func TestApprove_RollbackOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{approveErr: &engine.NetworkError{Op: "POST", Err: errors.New("boom")}}
	s := newSeeded(remote, models.StatusPendingApproval)

	_, err := s.Approve(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	stored, _ := s.Get("t1")
	if stored.Status != models.StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval restored", stored.Status)
	}
}

func TestArchive_GuardRunsBeforeRemote(t *testing.T) {
	remote := &fakeRemote{archiveErr: errors.New("remote should not be called")}
	s := newSeeded(remote, models.StatusNotStarted)

	_, err := s.Archive(context.Background(), "t1")
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestRefresh_DiscardsStaleResponse(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, editorSession())

	// two fetches issued; the older one completes last
	seqOld := s.beginFetch(listKey)
	seqNew := s.beginFetch(listKey)

	s.mu.Lock()
	if !s.commitFetch(listKey, seqNew) {
		t.Fatal("newer fetch should commit")
	}
	s.tasks = []models.Task{{ID: "fresh"}}

	if s.commitFetch(listKey, seqOld) {
		t.Error("older fetch should be discarded after a newer one landed")
	}
	s.mu.Unlock()

	tasks := s.Tasks(false)
	if len(tasks) != 1 || tasks[0].ID != "fresh" {
		t.Errorf("tasks = %+v, want only the fresh result", tasks)
	}
}

func TestRefresh_AppliesInOrder(t *testing.T) {
	remote := &fakeRemote{listResults: [][]models.Task{
		{{ID: "t1", Department: "CSE", Status: models.StatusInProgress}},
	}}
	s := New(remote, editorSession())

	if err := s.Refresh(context.Background(), models.Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Tasks(false); len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("tasks = %+v", got)
	}
}

func TestAddComment_PrependsAndAdoptsServerCopy(t *testing.T) {
	remote := &fakeRemote{}
	s := newSeeded(remote, models.StatusInProgress)
	s.comments["t1"] = []models.Comment{{ID: "c-old", CommentText: "older"}}

	got, err := s.AddComment(context.Background(), "t1", "newest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c-server" {
		t.Errorf("comment id = %q, want server id", got.ID)
	}

	comments := s.Comments("t1")
	if len(comments) != 2 {
		t.Fatalf("comment count = %d, want 2", len(comments))
	}
	if comments[0].ID != "c-server" || comments[1].ID != "c-old" {
		t.Errorf("order = [%s, %s], want newest first", comments[0].ID, comments[1].ID)
	}
}

func TestAddComment_EmptyFailsLocally(t *testing.T) {
	remote := &fakeRemote{commentErr: errors.New("remote should not be called")}
	s := newSeeded(remote, models.StatusInProgress)

	for _, text := range []string{"", "   "} {
		_, err := s.AddComment(context.Background(), "t1", text)
		if !errors.Is(err, engine.ErrEmptyComment) {
			t.Errorf("AddComment(%q) error = %v, want ErrEmptyComment", text, err)
		}
	}
	if got := s.Comments("t1"); len(got) != 0 {
		t.Errorf("rejected comments left %d entries behind", len(got))
	}
}

func TestAddComment_RollbackOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{commentErr: &engine.NetworkError{Op: "POST", Err: errors.New("boom")}}
	s := newSeeded(remote, models.StatusInProgress)

	_, err := s.AddComment(context.Background(), "t1", "will fail")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := s.Comments("t1"); len(got) != 0 {
		t.Errorf("failed comment left %d entries behind", len(got))
	}
}

func TestAddComment_SurvivesConcurrentCommentFetch(t *testing.T) {
	remote := &fakeRemote{}
	s := newSeeded(remote, models.StatusInProgress)

	// a comment fetch completes while the add is in flight and replaces
	// the cached slice, taking the speculative entry with it
	remote.onAddComment = func() {
		if err := s.LoadComments(context.Background(), "t1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	got, err := s.AddComment(context.Background(), "t1", "survives")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comments := s.Comments("t1")
	if len(comments) != 1 || comments[0].ID != got.ID {
		t.Errorf("comments = %+v, want only the confirmed comment", comments)
	}
}

func TestAddComment_NoDuplicateWhenFetchDeliveredServerCopy(t *testing.T) {
	remote := &fakeRemote{}
	s := newSeeded(remote, models.StatusInProgress)

	// the in-flight fetch already includes the server's copy of the
	// comment being added
	remote.onAddComment = func() {
		remote.listComments = []models.Comment{
			{ID: "c-server", TaskID: "t1", CommentText: "survives"},
		}
		if err := s.LoadComments(context.Background(), "t1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if _, err := s.AddComment(context.Background(), "t1", "survives"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comments := s.Comments("t1")
	if len(comments) != 1 || comments[0].ID != "c-server" {
		t.Errorf("comments = %+v, want the server copy exactly once", comments)
	}
}

func TestAddComment_RollbackSurvivesConcurrentCommentFetch(t *testing.T) {
	remote := &fakeRemote{commentErr: errors.New("boom")}
	s := newSeeded(remote, models.StatusInProgress)
	remote.onAddComment = func() {
		if err := s.LoadComments(context.Background(), "t1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if _, err := s.AddComment(context.Background(), "t1", "doomed"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := s.Comments("t1"); len(got) != 0 {
		t.Errorf("failed comment left %d entries behind", len(got))
	}
}

func TestLoadComments_ReversesServerOrder(t *testing.T) {
	remote := &fakeRemote{listComments: []models.Comment{
		{ID: "c1", CommentText: "first"},
		{ID: "c2", CommentText: "second"},
	}}
	s := newSeeded(remote, models.StatusInProgress)

	if err := s.LoadComments(context.Background(), "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Comments("t1")
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Errorf("comments = %+v, want newest first", got)
	}
}

func TestCreate_AppendsServerCopy(t *testing.T) {
	s := New(&fakeRemote{}, editorSession())

	created, err := s.Create(context.Background(), models.Task{Title: "new", Department: "CSE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "server-id" {
		t.Errorf("id = %q, want server-assigned", created.ID)
	}
	if _, ok := s.Get("server-id"); !ok {
		t.Error("created task not in collection")
	}
}
