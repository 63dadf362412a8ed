package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-taskboard-api/internal/application/task"
	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/transport/http/middleware"
)

// TaskHandler serves both the admin task surface and the caller's own tasks.
type TaskHandler struct {
	svc task.Service
}

func NewTaskHandler(svc task.Service) *TaskHandler { return &TaskHandler{svc: svc} }

func taskFilter(r *http.Request) domain.ListTasksFilter {
	q := r.URL.Query()
	return domain.ListTasksFilter{
		Status:       q.Get("status"),
		Priority:     q.Get("priority"),
		AssignedTo:   q.Get("assigned_to"),
		DepartmentID: q.Get("department_id"),
		Limit:        parseLimit(r),
		Cursor:       q.Get("cursor"),
	}
}

func writeTaskPage(w http.ResponseWriter, tasks []domain.Task, next string) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, PageEnvelope[domain.Task]{Data: tasks, NextCursor: next})
}

// --- admin ---

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	t, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, next, err := h.svc.List(r.Context(), taskFilter(r))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeTaskPage(w, tasks, next)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	t, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "task deleted"})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- own tasks ---

func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tasks, next, err := h.svc.ListMine(r.Context(), actor.UserID, taskFilter(r))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeTaskPage(w, tasks, next)
}

func (h *TaskHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	t, err := h.svc.GetMine(r.Context(), actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateTaskStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	t, err := h.svc.UpdateStatus(r.Context(), actor.UserID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
