package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-taskboard-api/internal/application/attachment"
	"github.com/go-taskboard-api/internal/domain"
	s3infra "github.com/go-taskboard-api/internal/infrastructure/s3"
	"github.com/go-taskboard-api/internal/transport/http/middleware"
)

const (
	// MaxUploadBytes caps a single attachment upload.
	MaxUploadBytes = 25 << 20
	// multipartMemory is how much of a form is held in memory before spilling to disk.
	multipartMemory = 8 << 20
)

type AttachmentHandler struct {
	svc attachment.Service
}

func NewAttachmentHandler(svc attachment.Service) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// Upload stores the "file" field of a multipart form as a task attachment.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = s3infra.DetectContentType(header.Filename)
	}
	a, err := h.svc.Upload(r.Context(), actor, attachment.UploadInput{
		TaskID:      chi.URLParam(r, "id"),
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        f,
	})
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.svc.List(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Attachment{}
	}
	writeJSON(w, http.StatusOK, DataEnvelope[[]domain.Attachment]{Data: list})
}

// Download returns a short-lived presigned URL rather than proxying the bytes.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	d, err := h.svc.Download(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "attachment deleted"})
}
