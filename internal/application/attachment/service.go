package attachment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/pkg/id"
)

const defaultURLTTL = 15 * time.Minute

// UploadInput is one file from a multipart request. Body is read twice:
// once to hash it and once to store it.
type UploadInput struct {
	TaskID      string
	Filename    string
	ContentType string
	Body        io.ReadSeeker
}

// Download is a presigned link to an attachment.
type Download struct {
	Attachment *domain.Attachment `json:"attachment"`
	URL        string             `json:"url"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

type Service interface {
	Upload(ctx context.Context, actor domain.Actor, in UploadInput) (*domain.Attachment, error)
	List(ctx context.Context, actor domain.Actor, taskID string) ([]domain.Attachment, error)
	Download(ctx context.Context, actor domain.Actor, taskID, attachmentID string) (*Download, error)
	Delete(ctx context.Context, taskID, attachmentID string) error
	PurgeTask(ctx context.Context, taskID string) error
}

type attachmentStore interface {
	Put(ctx context.Context, a *domain.Attachment) error
	Get(ctx context.Context, attachmentID string) (*domain.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error)
	Delete(ctx context.Context, attachmentID string) error
}

type taskLookup interface {
	Get(ctx context.Context, taskID string) (*domain.Task, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo    attachmentStore
	tasks   taskLookup
	storage objectStore
	urlTTL  time.Duration
	now     func() time.Time
}

type ServiceDeps struct {
	AttachmentRepo attachmentStore
	TaskRepo       taskLookup
	Storage        objectStore
	URLTTL         time.Duration
	Now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:    deps.AttachmentRepo,
		tasks:   deps.TaskRepo,
		storage: deps.Storage,
		urlTTL:  deps.URLTTL,
		now:     deps.Now,
	}
	if s.urlTTL <= 0 {
		s.urlTTL = defaultURLTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Upload hashes the body, stores it, then records the metadata. If the
// record cannot be written the object is removed.
func (s *service) Upload(ctx context.Context, actor domain.Actor, in UploadInput) (*domain.Attachment, error) {
	if _, err := s.authorize(ctx, actor, in.TaskID); err != nil {
		return nil, err
	}
	name := cleanFilename(in.Filename)
	if name == "" {
		return nil, fmt.Errorf("filename is required: %w", domain.ErrBadRequest)
	}
	attID := id.New()
	key := fmt.Sprintf("tasks/%s/%s-%s", in.TaskID, attID, name)

	h := sha256.New()
	size, err := io.Copy(h, in.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	if _, err := s.storage.Upload(ctx, key, in.Body, size, in.ContentType); err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	a := &domain.Attachment{
		AttachmentID:     attID,
		TaskID:           in.TaskID,
		Object:           key,
		Name:             name,
		Type:             contentType,
		Size:             size,
		Hash:             hex.EncodeToString(h.Sum(nil)),
		UploadedByUserID: actor.UserID,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.Put(ctx, a); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			slog.ErrorContext(ctx, "failed to remove orphaned object", "key", key, "err", delErr)
		}
		return nil, err
	}
	return a, nil
}

func (s *service) List(ctx context.Context, actor domain.Actor, taskID string) ([]domain.Attachment, error) {
	if _, err := s.authorize(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListByTask(ctx, taskID)
}

func (s *service) Download(ctx context.Context, actor domain.Actor, taskID, attachmentID string) (*Download, error) {
	if _, err := s.authorize(ctx, actor, taskID); err != nil {
		return nil, err
	}
	a, err := s.attachmentOf(ctx, taskID, attachmentID)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.PresignedURL(ctx, a.Object, a.Name, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &Download{Attachment: a, URL: url, ExpiresAt: s.now().UTC().Add(s.urlTTL)}, nil
}

func (s *service) Delete(ctx context.Context, taskID, attachmentID string) error {
	a, err := s.attachmentOf(ctx, taskID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, a.Object); err != nil {
		return err
	}
	return s.repo.Delete(ctx, a.AttachmentID)
}

// PurgeTask deletes every attachment of a task, objects first.
func (s *service) PurgeTask(ctx context.Context, taskID string) error {
	list, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, a := range list {
		if err := s.storage.Delete(ctx, a.Object); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, a.AttachmentID); err != nil {
			return err
		}
	}
	return nil
}

// authorize lets admins through and otherwise requires the caller to be the assignee.
func (s *service) authorize(ctx context.Context, actor domain.Actor, taskID string) (*domain.Task, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && t.AssignedTo != actor.UserID {
		return nil, fmt.Errorf("task is assigned to another user: %w", domain.ErrForbidden)
	}
	return t, nil
}

func (s *service) attachmentOf(ctx context.Context, taskID, attachmentID string) (*domain.Attachment, error) {
	a, err := s.repo.Get(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if a.TaskID != taskID {
		return nil, fmt.Errorf("attachment not found: %w", domain.ErrNotFound)
	}
	return a, nil
}

// cleanFilename keeps only the base name and drops characters that would
// make awkward object keys.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, r == '"', r == '?', r == '#', r == '%':
			return '_'
		default:
			return r
		}
	}, name)
}
