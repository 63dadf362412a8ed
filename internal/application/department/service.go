package department

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/pkg/id"
)

type Service interface {
	List(ctx context.Context) ([]domain.Department, error)
	Get(ctx context.Context, departmentID string) (*domain.Department, error)
	Create(ctx context.Context, in domain.DepartmentInput) (*domain.Department, error)
	Update(ctx context.Context, departmentID string, in domain.DepartmentInput) (*domain.Department, error)
	Delete(ctx context.Context, departmentID string) error
}

type departmentStore interface {
	Put(ctx context.Context, d *domain.Department) error
	Get(ctx context.Context, departmentID string) (*domain.Department, error)
	Scan(ctx context.Context) ([]domain.Department, error)
	FindByName(ctx context.Context, name string) (*domain.Department, error)
	Update(ctx context.Context, departmentID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, departmentID string) error
}

type memberChecker interface {
	HasDepartmentMembers(ctx context.Context, departmentID string) (bool, error)
}

type service struct {
	repo    departmentStore
	members memberChecker
	now     func() time.Time
}

type ServiceDeps struct {
	DepartmentRepo departmentStore
	UserRepo       memberChecker
	Now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{repo: deps.DepartmentRepo, members: deps.UserRepo, now: deps.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) List(ctx context.Context) ([]domain.Department, error) {
	return s.repo.Scan(ctx)
}

func (s *service) Get(ctx context.Context, departmentID string) (*domain.Department, error) {
	return s.repo.Get(ctx, departmentID)
}

func (s *service) Create(ctx context.Context, in domain.DepartmentInput) (*domain.Department, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	d := &domain.Department{
		DepartmentID: id.New(),
		Name:         name,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) Update(ctx context.Context, departmentID string, in domain.DepartmentInput) (*domain.Department, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, departmentID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, departmentID, map[string]interface{}{
		"name":        name,
		"description": in.Description,
	}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, departmentID)
}

// Delete refuses to remove a department that users still belong to.
func (s *service) Delete(ctx context.Context, departmentID string) error {
	if _, err := s.repo.Get(ctx, departmentID); err != nil {
		return err
	}
	inUse, err := s.members.HasDepartmentMembers(ctx, departmentID)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("department still has members: %w", domain.ErrConflict)
	}
	return s.repo.HardDelete(ctx, departmentID)
}

func (s *service) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.DepartmentID == selfID:
		return nil
	default:
		return fmt.Errorf("department name already in use: %w", domain.ErrConflict)
	}
}
