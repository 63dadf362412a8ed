package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-taskboard-api/internal/application/department"
	"github.com/go-taskboard-api/internal/domain"
)

type DepartmentHandler struct {
	svc department.Service
}

func NewDepartmentHandler(svc department.Service) *DepartmentHandler {
	return &DepartmentHandler{svc: svc}
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.svc.List(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	if depts == nil {
		depts = []domain.Department{}
	}
	writeJSON(w, http.StatusOK, DataEnvelope[[]domain.Department]{Data: depts})
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		httpError(w, r, err)
		return
	}
	d, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in domain.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		httpError(w, r, err)
		return
	}
	d, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "department deleted"})
}
