package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"archtrack/internal/engine"
	"archtrack/internal/models"
)

// handleTaskSummary builds per-department status/priority counts. Requires
// generate_reports; callers without view_all_tasks only get their own
// department, and asking for another one is denied rather than silently
// narrowed.
func (s *Server) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.HasPermission(models.PermGenerateReports) {
		writeError(w, http.StatusForbidden, engine.ErrPermissionDenied.Error())
		return
	}

	dept := r.URL.Query().Get("department")
	if !sess.HasPermission(models.PermViewAllTasks) {
		if dept != "" && dept != sess.Department {
			writeError(w, http.StatusForbidden, "permission denied for requested department")
			return
		}
		dept = sess.Department
	}

	all, err := s.db.ListTasks()
	if err != nil {
		s.internalError(w, err)
		return
	}

	byDept := make(map[string]*models.DepartmentSummary)
	for _, t := range all {
		if dept != "" && t.Department != dept {
			continue
		}
		sum := byDept[t.Department]
		if sum == nil {
			sum = &models.DepartmentSummary{
				Department: t.Department,
				ByStatus:   make(map[models.Status]int),
				ByPriority: make(map[models.Priority]int),
			}
			byDept[t.Department] = sum
		}
		sum.Total++
		sum.ByStatus[t.Status]++
		sum.ByPriority[t.Priority]++
	}

	report := models.TaskSummaryReport{
		GeneratedAt: time.Now().UTC(),
		GeneratedBy: sess.UserID,
		Departments: make([]models.DepartmentSummary, 0, len(byDept)),
	}
	for _, sum := range byDept {
		report.Departments = append(report.Departments, *sum)
	}
	sort.Slice(report.Departments, func(i, j int) bool {
		return report.Departments[i].Department < report.Departments[j].Department
	})

	writeJSON(w, report)
}

// handleDepartmentReport builds the completion-rate report for a single
// department. Requires generate_department_reports, and the department
// must be the caller's own unless they hold view_all_tasks.
func (s *Server) handleDepartmentReport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.HasPermission(models.PermGenerateDeptReport) {
		writeError(w, http.StatusForbidden, engine.ErrPermissionDenied.Error())
		return
	}

	dept := chi.URLParam(r, "department")
	if !sess.HasPermission(models.PermViewAllTasks) && dept != sess.Department {
		writeError(w, http.StatusForbidden, "permission denied for requested department")
		return
	}

	all, err := s.db.ListTasks()
	if err != nil {
		s.internalError(w, err)
		return
	}

	report := models.DepartmentReport{
		Department:  dept,
		GeneratedAt: time.Now().UTC(),
		GeneratedBy: sess.UserID,
		ByStatus:    make(map[models.Status]int),
	}
	for _, t := range all {
		if t.Department != dept {
			continue
		}
		report.Total++
		report.ByStatus[t.Status]++
		if t.Status == models.StatusDone || t.Status == models.StatusArchived {
			report.Completed++
		}
	}
	if report.Total == 0 {
		writeError(w, http.StatusNotFound, "no tasks for department")
		return
	}
	report.CompletionRate = float64(report.Completed) / float64(report.Total)

	writeJSON(w, report)
}
