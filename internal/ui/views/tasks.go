package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"archtrack/internal/engine"
	"archtrack/internal/models"
	"archtrack/internal/store"
	"archtrack/internal/ui/keys"
	"archtrack/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// FocusArea represents which part of the UI has focus
type FocusArea int

const (
	FocusSearchInput FocusArea = iota
	FocusStatusFilter
	FocusTaskList
)

// LoggedOut signals to return to the login screen
type LoggedOut struct{}

// TaskListView shows the task collection with search, status filtering,
// an archived-tasks mode, a detail overlay and an edit form.
type TaskListView struct {
	store  *store.Store
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	// UI state
	focus       FocusArea
	cursor      int
	scrollY     int
	searchInput textinput.Model
	visible     []models.Task
	errMsg      string

	// Status filter dropdown
	statusFilter       *models.Status // nil = all
	statusDropdownOpen bool
	statusCursor       int

	// Archived tasks mode, gated on access_archives
	showingArchived bool

	// Task detail view
	viewingTask         bool
	showHistory         bool
	commentInput        textarea.Model
	commentInputFocused bool

	// Task creation/editing
	editing      bool
	editingNew   bool
	editTitle    textinput.Model
	editDesc     textarea.Model
	editAssigned textinput.Model
	editTags     textinput.Model
	editPriority models.Priority
	editStatus   models.Status
	editFocusIdx int // 0=title, 1=desc, 2=priority, 3=status, 4=assigned, 5=tags, 6=save

	// Help popup
	showHelpPopup bool
}

// NewTaskListView creates the task list view
func NewTaskListView(s *store.Store) *TaskListView {
	st := styles.NewStyles()

	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 100

	editTitle := textinput.New()
	editTitle.Placeholder = "Task title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 2000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editAssigned := textinput.New()
	editAssigned.Placeholder = "Assignee user id"
	editAssigned.CharLimit = 100

	editTags := textinput.New()
	editTags.Placeholder = "Tags, comma separated"
	editTags.CharLimit = 200

	commentInput := textarea.New()
	commentInput.Placeholder = "Add a comment..."
	commentInput.CharLimit = 2000
	commentInput.SetWidth(50)
	commentInput.SetHeight(3)
	commentInput.ShowLineNumbers = false

	return &TaskListView{
		store:        s,
		styles:       st,
		keys:         keys.DefaultKeyMap(),
		focus:        FocusTaskList,
		searchInput:  search,
		editTitle:    editTitle,
		editDesc:     editDesc,
		editAssigned: editAssigned,
		editTags:     editTags,
		commentInput: commentInput,
	}
}

// RefreshStyles rebuilds styles after a theme change
func (v *TaskListView) RefreshStyles() {
	v.styles = styles.NewStyles()
}

// Init initializes the view
func (v *TaskListView) Init() tea.Cmd {
	return v.refreshTasks()
}

type tasksRefreshedMsg struct {
	err error
}

type commentsLoadedMsg struct {
	taskID string
	err    error
}

type mutationDoneMsg struct {
	err error
}

// currentFilter builds the list filter from the view state
func (v *TaskListView) currentFilter() models.Filter {
	f := models.Filter{Search: strings.TrimSpace(v.searchInput.Value())}
	if v.showingArchived {
		f.Statuses = []models.Status{models.StatusArchived}
	} else if v.statusFilter != nil {
		f.Statuses = []models.Status{*v.statusFilter}
	}
	return f
}

func (v *TaskListView) refreshTasks() tea.Cmd {
	s := v.store
	filter := v.currentFilter()
	return func() tea.Msg {
		return tasksRefreshedMsg{err: s.Refresh(context.Background(), filter)}
	}
}

func (v *TaskListView) loadComments(taskID string) tea.Cmd {
	s := v.store
	return func() tea.Msg {
		return commentsLoadedMsg{taskID: taskID, err: s.LoadComments(context.Background(), taskID)}
	}
}

// recompute rebuilds the visible task slice from the store
func (v *TaskListView) recompute() {
	filter := v.currentFilter()
	var visible []models.Task
	for _, t := range v.store.Tasks(v.showingArchived) {
		if engine.MatchesFilter(t, filter) {
			visible = append(visible, t)
		}
	}
	v.visible = visible
	if v.cursor >= len(v.visible) {
		v.cursor = max(0, len(v.visible)-1)
	}
}

func (v *TaskListView) selectedTask() (models.Task, bool) {
	if len(v.visible) == 0 || v.cursor >= len(v.visible) {
		return models.Task{}, false
	}
	// re-read from the store: the visible slice may predate a mutation
	return v.store.Get(v.visible[v.cursor].ID)
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		inputWidth := clamp(contentWidth-10, 20, 50)
		v.editDesc.SetWidth(inputWidth)
		v.commentInput.SetWidth(inputWidth)
		return v, nil

	case tasksRefreshedMsg:
		if msg.err != nil {
			v.errMsg = msg.err.Error()
		} else {
			v.errMsg = ""
		}
		v.recompute()
		return v, nil

	case commentsLoadedMsg:
		if msg.err != nil {
			v.errMsg = msg.err.Error()
		}
		return v, nil

	case mutationDoneMsg:
		if msg.err != nil {
			v.errMsg = msg.err.Error()
		} else {
			v.errMsg = ""
		}
		v.recompute()
		return v, nil

	case tea.KeyMsg:
		// any key closes the help popup
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		if v.viewingTask {
			return v.updateViewingTask(msg)
		}

		if v.statusDropdownOpen {
			return v.updateStatusDropdown(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle search input typing first - don't process hotkeys while typing
	if v.focus == FocusSearchInput {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.searchInput.Blur()
			v.focus = FocusTaskList
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			v.searchInput.Blur()
			v.focus = FocusTaskList
			return v, v.refreshTasks()
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.recompute()
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		if v.showingArchived {
			v.showingArchived = false
			v.cursor = 0
			v.scrollY = 0
			return v, v.refreshTasks()
		}
		return v, func() tea.Msg { return LoggedOut{} }

	case key.Matches(msg, v.keys.Tab):
		v.cycleFocus(1)
		return v, nil

	case msg.String() == "shift+tab":
		v.cycleFocus(-1)
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.focus == FocusTaskList && v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.focus == FocusTaskList && v.cursor < len(v.visible)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.focus {
		case FocusStatusFilter:
			v.statusDropdownOpen = true
			v.statusCursor = 0
			return v, nil
		case FocusTaskList:
			if task, ok := v.selectedTask(); ok {
				v.viewingTask = true
				v.showHistory = false
				return v, v.loadComments(task.ID)
			}
		}
		return v, nil

	case key.Matches(msg, v.keys.Edit):
		if task, ok := v.selectedTask(); ok && v.focus == FocusTaskList {
			if !engine.CanEdit(v.store.Session(), task) {
				v.errMsg = "you cannot edit this task"
				return v, nil
			}
			v.startEditTask(task)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		if !v.store.Session().HasPermission(models.PermCreateTask) {
			v.errMsg = "you cannot create tasks"
			return v, nil
		}
		v.startNewTask()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Search):
		v.focus = FocusSearchInput
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Filter):
		v.focus = FocusStatusFilter
		v.statusDropdownOpen = true
		v.statusCursor = 0
		return v, nil

	case key.Matches(msg, v.keys.Archives):
		// Archive access is permission-gated, independent of department
		if !v.showingArchived && !v.store.Session().HasPermission(models.PermAccessArchives) {
			v.errMsg = "archive access requires the access_archives permission"
			return v, nil
		}
		v.showingArchived = !v.showingArchived
		v.cursor = 0
		v.scrollY = 0
		return v, v.refreshTasks()

	case msg.String() == "?":
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) updateStatusDropdown(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// first entry is "All", then the non-archived statuses
	options := len(models.AllStatuses)

	switch {
	case key.Matches(msg, v.keys.Back):
		v.statusDropdownOpen = false
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.statusCursor > 0 {
			v.statusCursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.statusCursor < options-1 {
			v.statusCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.statusCursor == 0 {
			v.statusFilter = nil
		} else {
			status := models.AllStatuses[v.statusCursor-1]
			v.statusFilter = &status
		}
		v.statusDropdownOpen = false
		v.cursor = 0
		v.scrollY = 0
		return v, v.refreshTasks()
	}

	return v, nil
}

func (v *TaskListView) updateViewingTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, ok := v.selectedTask()
	if !ok {
		v.viewingTask = false
		return v, nil
	}
	sess := v.store.Session()

	// Handle comment input mode
	if v.commentInputFocused {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.commentInputFocused = false
			v.commentInput.Blur()
			return v, nil
		case msg.String() == "ctrl+s":
			return v, v.submitComment(task.ID)
		default:
			var cmd tea.Cmd
			v.commentInput, cmd = v.commentInput.Update(msg)
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.viewingTask = false
		v.showHistory = false
		return v, nil

	case key.Matches(msg, v.keys.Edit):
		if !engine.CanEdit(sess, task) {
			v.errMsg = "you cannot edit this task"
			return v, nil
		}
		v.viewingTask = false
		v.startEditTask(task)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Approve):
		if !engine.CanApprove(sess, task) {
			return v, nil
		}
		return v, v.approveTask(task.ID)

	case key.Matches(msg, v.keys.Archive):
		if !engine.CanArchive(sess, task) {
			return v, nil
		}
		return v, v.archiveTask(task.ID)

	case key.Matches(msg, v.keys.Comment):
		v.commentInputFocused = true
		v.commentInput.Focus()
		return v, textarea.Blink

	case key.Matches(msg, v.keys.History):
		v.showHistory = !v.showHistory
		return v, nil

	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	}
	return v, nil
}

func (v *TaskListView) approveTask(id string) tea.Cmd {
	s := v.store
	return func() tea.Msg {
		_, err := s.Approve(context.Background(), id)
		return mutationDoneMsg{err: err}
	}
}

func (v *TaskListView) archiveTask(id string) tea.Cmd {
	s := v.store
	return func() tea.Msg {
		_, err := s.Archive(context.Background(), id)
		return mutationDoneMsg{err: err}
	}
}

func (v *TaskListView) submitComment(taskID string) tea.Cmd {
	text := v.commentInput.Value()
	if strings.TrimSpace(text) == "" {
		v.errMsg = "comment text is empty"
		return nil
	}

	v.commentInput.Reset()
	v.commentInputFocused = false
	v.commentInput.Blur()

	s := v.store
	return func() tea.Msg {
		_, err := s.AddComment(context.Background(), taskID, text)
		return mutationDoneMsg{err: err}
	}
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	const fieldCount = 7 // title, desc, priority, status, assigned, tags, save

	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocusIdx = (v.editFocusIdx + fieldCount - 1) % fieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case 2:
			v.editPriority = nextPriority(v.editPriority)
			return v, nil
		case 3:
			if !v.editingNew {
				v.editStatus = nextStatus(v.editStatus)
			}
			return v, nil
		case 6:
			return v, v.saveTask()
		default:
			if v.editFocusIdx != 1 { // textarea keeps enter for newlines
				v.editFocusIdx++
				v.updateEditFocus()
				return v, nil
			}
		}

	case msg.String() == " ":
		// space also cycles the selector fields
		switch v.editFocusIdx {
		case 2:
			v.editPriority = nextPriority(v.editPriority)
			return v, nil
		case 3:
			if !v.editingNew {
				v.editStatus = nextStatus(v.editStatus)
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case 0:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case 1:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case 4:
		v.editAssigned, cmd = v.editAssigned.Update(msg)
	case 5:
		v.editTags, cmd = v.editTags.Update(msg)
	}
	return v, cmd
}

// nextPriority cycles low -> medium -> high -> low
func nextPriority(p models.Priority) models.Priority {
	switch p {
	case models.PriorityLow:
		return models.PriorityMedium
	case models.PriorityMedium:
		return models.PriorityHigh
	default:
		return models.PriorityLow
	}
}

// nextStatus cycles through the manual-override statuses. Archived is not
// offered here; archiving has its own action and guard.
func nextStatus(s models.Status) models.Status {
	switch s {
	case models.StatusNotStarted:
		return models.StatusInProgress
	case models.StatusInProgress:
		return models.StatusPendingApproval
	case models.StatusPendingApproval:
		return models.StatusDone
	default:
		return models.StatusNotStarted
	}
}

func (v *TaskListView) cycleFocus(dir int) {
	v.searchInput.Blur()

	v.focus = FocusArea((int(v.focus) + dir + 3) % 3)

	if v.focus == FocusSearchInput {
		v.searchInput.Focus()
	}
}

func (v *TaskListView) ensureVisible() {
	// Each task item is 2 lines + 1 margin = 3 lines
	availableHeight := v.height - 12
	if availableHeight < 3 {
		availableHeight = 3
	}
	visibleItems := availableHeight / 3
	if visibleItems < 1 {
		visibleItems = 1
	}

	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

func (v *TaskListView) startNewTask() {
	v.editing = true
	v.editingNew = true
	v.editFocusIdx = 0
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editAssigned.Reset()
	v.editTags.Reset()
	v.editPriority = models.PriorityMedium
	v.editStatus = models.StatusNotStarted
	v.updateEditFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editingNew = false
	v.editFocusIdx = 0
	v.editTitle.SetValue(task.Title)
	v.editDesc.SetValue(task.Description)
	v.editAssigned.SetValue(task.AssignedTo)
	v.editTags.SetValue(strings.Join(task.Tags, ", "))
	v.editPriority = task.Priority
	v.editStatus = task.Status
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editAssigned.Blur()
	v.editTags.Blur()

	switch v.editFocusIdx {
	case 0:
		v.editTitle.Focus()
	case 1:
		v.editDesc.Focus()
	case 4:
		v.editAssigned.Focus()
	case 5:
		v.editTags.Focus()
	}
}

// parseTags splits a comma-separated tag string, dropping empties while
// preserving order
func parseTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// buildPatch computes the minimal patch between the edit form and the
// task it was opened on. Only changed fields are set.
func (v *TaskListView) buildPatch(task models.Task) models.TaskPatch {
	var patch models.TaskPatch

	if title := strings.TrimSpace(v.editTitle.Value()); title != task.Title {
		patch.Title = &title
	}
	if desc := strings.TrimSpace(v.editDesc.Value()); desc != task.Description {
		patch.Description = &desc
	}
	if v.editPriority != task.Priority {
		p := v.editPriority
		patch.Priority = &p
	}
	if v.editStatus != task.Status {
		s := v.editStatus
		patch.Status = &s
	}
	if assigned := strings.TrimSpace(v.editAssigned.Value()); assigned != task.AssignedTo {
		patch.AssignedTo = &assigned
	}
	tags := parseTags(v.editTags.Value())
	if strings.Join(tags, "\x00") != strings.Join(task.Tags, "\x00") {
		patch.Tags = &tags
	}
	return patch
}

func (v *TaskListView) saveTask() tea.Cmd {
	title := strings.TrimSpace(v.editTitle.Value())
	if title == "" {
		v.errMsg = "title is required"
		return nil
	}

	s := v.store

	if v.editingNew {
		task := models.Task{
			Title:       title,
			Description: strings.TrimSpace(v.editDesc.Value()),
			Priority:    v.editPriority,
			AssignedTo:  strings.TrimSpace(v.editAssigned.Value()),
			Tags:        parseTags(v.editTags.Value()),
			Department:  s.Session().Department,
		}
		v.editing = false
		return func() tea.Msg {
			_, err := s.Create(context.Background(), task)
			return mutationDoneMsg{err: err}
		}
	}

	task, ok := v.selectedTask()
	if !ok {
		v.editing = false
		return nil
	}
	patch := v.buildPatch(task)
	v.editing = false
	if patch.IsEmpty() {
		return nil
	}
	return func() tea.Msg {
		_, err := s.Edit(context.Background(), task.ID, patch)
		return mutationDoneMsg{err: err}
	}
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.viewingTask {
		return v.renderTaskView()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")

	if v.errMsg != "" {
		b.WriteString(v.styles.ErrorText.Render(v.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	isNarrow := contentWidth < 60

	searchStyle := s.Input
	if v.focus == FocusSearchInput {
		searchStyle = s.InputFocused
	}
	searchWidth := clamp(contentWidth-8, 10, 30)
	searchBox := searchStyle.Width(searchWidth).Render(v.searchInput.View())

	filterStyle := s.Button
	if v.focus == FocusStatusFilter {
		filterStyle = s.ButtonFocused
	}
	filterLabel := "All"
	if v.statusFilter != nil {
		filterLabel = statusLabel(*v.statusFilter)
	}
	if !isNarrow {
		filterLabel = "Status: " + filterLabel
	}
	filterBtn := filterStyle.Render(filterLabel + " ▼")

	titleText := "Tasks"
	if v.showingArchived {
		titleText = "Archived Tasks"
	}
	sess := v.store.Session()
	title := s.Title.Render(titleText) + "  " +
		s.TitleMuted.Render(sess.Name+" · "+sess.Department)

	var header string
	if isNarrow {
		header = lipgloss.JoinVertical(lipgloss.Left, searchBox, filterBtn)
	} else {
		header = lipgloss.JoinHorizontal(lipgloss.Center, searchBox, "  ", filterBtn)
	}

	dropdown := ""
	if v.statusDropdownOpen {
		dropdown = "\n" + v.renderStatusDropdown()
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, header+dropdown)
}

func (v *TaskListView) renderStatusDropdown() string {
	s := v.styles
	var items []string

	noneStyle := s.ListItem
	if v.statusCursor == 0 {
		noneStyle = s.ListSelected
	}
	items = append(items, noneStyle.Render("All"))

	for i, status := range models.AllStatuses[:len(models.AllStatuses)-1] {
		itemStyle := s.ListItem
		if v.statusCursor == i+1 {
			itemStyle = s.ListSelected
		}
		dot := lipgloss.NewStyle().Foreground(styles.StatusColor(status)).Render("●")
		items = append(items, itemStyle.Render(dot+" "+statusLabel(status)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, items...)
	return s.FilterBar.Render(content)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if len(v.visible) == 0 {
		if v.showingArchived {
			return s.TitleMuted.Render("No archived tasks.")
		}
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	availableHeight := v.height - 12
	if availableHeight < 3 {
		availableHeight = 3
	}
	visibleItems := availableHeight / 3
	if visibleItems < 1 {
		visibleItems = 1
	}

	var items []string
	endIdx := min(v.scrollY+visibleItems, len(v.visible))

	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.visible[i], i == v.cursor && v.focus == FocusTaskList))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

// statusLabel renders a status for display ("pending_approval" -> "Pending Approval")
func statusLabel(status models.Status) string {
	words := strings.Split(string(status), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	priority := lipgloss.NewStyle().
		Foreground(styles.PriorityColor(task.Priority)).
		Render(fmt.Sprintf("[%s] ", task.Priority))
	titleLine := priority + task.Title

	status := lipgloss.NewStyle().
		Foreground(styles.StatusColor(task.Status)).
		Render(statusLabel(task.Status))
	metaLine := status + s.TitleMuted.Render(" · "+task.Department)
	if len(task.Tags) > 0 {
		metaLine += s.TitleMuted.Render(" · " + strings.Join(task.Tags, ", "))
	}

	var titleStyle, metaStyle lipgloss.Style
	if selected {
		titleStyle = s.ListSelected.Width(width)
		metaStyle = s.ListSelected.Width(width)
	} else {
		titleStyle = s.ListItem.Width(width)
		metaStyle = s.ListItem.Width(width)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(titleLine),
		metaStyle.Render(metaLine),
	) + "\n"
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if !v.editingNew {
		formTitle = "Edit Task"
	}

	fieldStyle := func(idx int) lipgloss.Style {
		if v.editFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.editFocusIdx == 6 {
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	priorityText := lipgloss.NewStyle().
		Foreground(styles.PriorityColor(v.editPriority)).
		Render(string(v.editPriority))

	rows := []string{
		s.Title.Render(formTitle),
		"",
		"Title:",
		fieldStyle(0).Width(inputWidth).Render(v.editTitle.View()),
		"",
		"Description:",
		fieldStyle(1).Render(v.editDesc.View()),
		"",
		"Priority:",
		fieldStyle(2).Width(20).Render(priorityText),
	}

	if !v.editingNew {
		statusText := lipgloss.NewStyle().
			Foreground(styles.StatusColor(v.editStatus)).
			Render(statusLabel(v.editStatus))
		rows = append(rows,
			"",
			"Status:",
			fieldStyle(3).Width(20).Render(statusText),
		)
	}

	rows = append(rows,
		"",
		"Assigned to:",
		fieldStyle(4).Width(inputWidth).Render(v.editAssigned.View()),
		"",
		"Tags:",
		fieldStyle(5).Width(inputWidth).Render(v.editTags.View()),
		"",
		btnStyle.Render(" Save "),
	)

	if v.errMsg != "" {
		rows = append(rows, "", s.ErrorText.Render(v.errMsg))
	}
	rows = append(rows, "",
		s.TitleMuted.Render("Tab: next • Space/↵: cycle value • Ctrl+S: save • Esc: cancel"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	archivesLabel := "archives"
	if v.showingArchived {
		archivesLabel = "back"
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s edit • %s new • %s search • %s filter • %s %s • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("f"),
			v.styles.HelpKey.Render("v"),
			archivesLabel,
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("f") + "      filter by status",
		s.HelpKey.Render("v") + "      archived tasks",
		s.HelpKey.Render("ctrl+t") + " toggle theme",
		s.HelpKey.Render("esc") + "    back",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

// availableActions lists the detail-view actions the session may take on
// the task, in help-line order.
func availableActions(sess models.Session, task models.Task) []string {
	var actions []string
	if engine.CanEdit(sess, task) {
		actions = append(actions, "edit")
	}
	if engine.CanApprove(sess, task) {
		actions = append(actions, "approve")
	}
	if engine.CanArchive(sess, task) {
		actions = append(actions, "archive")
	}
	return actions
}

func (v *TaskListView) renderTaskView() string {
	task, ok := v.selectedTask()
	if !ok {
		return ""
	}

	s := v.styles
	sess := v.store.Session()
	maxContentWidth := styles.ContentWidth(v.width)
	textWidth := clamp(maxContentWidth-10, 20, 70)

	labelStyle := s.TitleMuted

	statusLine := lipgloss.NewStyle().
		Foreground(styles.StatusColor(task.Status)).
		Bold(true).
		Render(statusLabel(task.Status))

	priorityLine := lipgloss.NewStyle().
		Foreground(styles.PriorityColor(task.Priority)).
		Render(string(task.Priority))

	tagsLine := "None"
	if len(task.Tags) > 0 {
		tagsLine = strings.Join(task.Tags, ", ")
	}

	descText := task.Description
	if descText == "" {
		descText = s.TitleMuted.Render("No description")
	}

	assignedLine := task.AssignedTo
	if assignedLine == "" {
		assignedLine = s.TitleMuted.Render("Unassigned")
	}

	// Comments, newest first
	comments := v.store.Comments(task.ID)
	var commentsContent string
	if len(comments) == 0 {
		commentsContent = s.TitleMuted.Render("No comments yet")
	} else {
		var commentLines []string
		for _, comment := range comments {
			header := comment.CreatedBy + " · " + comment.CreatedAt.Format("Jan 2, 2006 3:04 PM")
			commentLines = append(commentLines, lipgloss.JoinVertical(lipgloss.Left,
				s.TitleMuted.Render(header),
				lipgloss.NewStyle().Width(textWidth).Render(comment.CommentText),
			))
		}
		commentsContent = lipgloss.JoinVertical(lipgloss.Left, commentLines...)
	}

	commentInputStyle := s.Input
	if v.commentInputFocused {
		commentInputStyle = s.InputFocused
	}

	var helpText string
	if v.commentInputFocused {
		helpText = s.Help.Render(
			fmt.Sprintf("%s submit • %s cancel",
				s.HelpKey.Render("ctrl+s"),
				s.HelpKey.Render("esc"),
			),
		)
	} else {
		parts := []string{}
		for _, action := range availableActions(sess, task) {
			var k string
			switch action {
			case "edit":
				k = "e"
			case "approve":
				k = "a"
			case "archive":
				k = "r"
			}
			parts = append(parts, s.HelpKey.Render(k)+" "+action)
		}
		parts = append(parts,
			s.HelpKey.Render("c")+" comment",
			s.HelpKey.Render("h")+" history",
			s.HelpKey.Render("esc")+" back",
		)
		helpText = s.Help.Render(strings.Join(parts, " • "))
	}

	rows := []string{
		s.Title.MarginBottom(1).Render(task.Title),
		"",
		labelStyle.Render("Status"),
		statusLine,
		"",
		labelStyle.Render("Priority"),
		priorityLine,
		"",
		labelStyle.Render("Department"),
		task.Department,
		"",
		labelStyle.Render("Assigned to"),
		assignedLine,
		"",
		labelStyle.Render("Tags"),
		tagsLine,
		"",
		labelStyle.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(descText),
	}

	if v.showHistory {
		rows = append(rows, "", labelStyle.Render("History"), v.renderHistory(task, textWidth))
	}

	rows = append(rows,
		"",
		labelStyle.Render("Comments"),
		commentsContent,
		"",
		commentInputStyle.Render(v.commentInput.View()),
	)

	if v.errMsg != "" {
		rows = append(rows, "", s.ErrorText.Render(v.errMsg))
	}
	rows = append(rows, "", helpText)

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)
	padded := lipgloss.NewStyle().Padding(1, 2).Render(content)
	return styles.CenterView(padded, v.width, v.height)
}

func (v *TaskListView) renderHistory(task models.Task, textWidth int) string {
	s := v.styles
	if len(task.ChangeLog) == 0 {
		return s.TitleMuted.Render("No changes recorded")
	}

	// newest first for display
	var lines []string
	for i := len(task.ChangeLog) - 1; i >= 0; i-- {
		entry := task.ChangeLog[i]
		header := entry.ChangedAt.Format("Jan 2, 2006 3:04 PM") + " · " + entry.ChangedBy
		change := fmt.Sprintf("%s: %q → %q", entry.Field, entry.OldValue, entry.NewValue)
		lines = append(lines, lipgloss.JoinVertical(lipgloss.Left,
			s.TitleMuted.Render(header),
			lipgloss.NewStyle().Width(textWidth).Render(change),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
