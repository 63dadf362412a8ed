package http

import (
	"context"
	"io"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	jwtinfra "github.com/go-taskboard-api/internal/infrastructure/jwt"
	"github.com/go-taskboard-api/internal/infrastructure/smtp"
	"github.com/go-taskboard-api/internal/infrastructure/sns"
	appmiddleware "github.com/go-taskboard-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       UserRepository
	TaskRepo       TaskRepository
	DepartmentRepo DepartmentRepository
	AttachmentRepo AttachmentRepository
	ObjectStore    ObjectStore
	Mailer         smtp.Mailer
	SMSSender      sns.SMSSender // nil disables assignment SMS
	Tokens         TokenProvider
	AuthLimiter    *appmiddleware.RateLimiter
}

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID, email string) error
	ScanPage(ctx context.Context, filter domain.ListUsersFilter) ([]domain.User, string, error)
	HasDepartmentMembers(ctx context.Context, departmentID string) (bool, error)
}

// TaskRepository is the minimal interface the router requires from a task store.
type TaskRepository interface {
	Put(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Update(ctx context.Context, taskID string, updates map[string]interface{}) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	List(ctx context.Context, filter domain.ListTasksFilter) ([]domain.Task, string, error)
	Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error)
}

// DepartmentRepository is the minimal interface the router requires from a department store.
type DepartmentRepository interface {
	Put(ctx context.Context, d *domain.Department) error
	Get(ctx context.Context, departmentID string) (*domain.Department, error)
	Scan(ctx context.Context) ([]domain.Department, error)
	FindByName(ctx context.Context, name string) (*domain.Department, error)
	Update(ctx context.Context, departmentID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, departmentID string) error
}

// AttachmentRepository is the minimal interface the router requires from an attachment metadata store.
type AttachmentRepository interface {
	Put(ctx context.Context, a *domain.Attachment) error
	Get(ctx context.Context, attachmentID string) (*domain.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error)
	Delete(ctx context.Context, attachmentID string) error
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// TokenProvider signs bearer tokens at login and verifies them on every request.
type TokenProvider interface {
	Sign(userID string, role domain.Role) (string, time.Time, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}
