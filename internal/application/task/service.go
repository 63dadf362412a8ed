package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/infrastructure/sns"
	"github.com/go-taskboard-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldStatus       = "status"
	fieldPriority     = "priority"
	fieldDueDate      = "due_date"
	fieldAssignedTo   = "assigned_to"
	fieldDepartmentID = "department_id"
)

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 50
	maxPageSize     = 100
)

type Service interface {
	Create(ctx context.Context, actor domain.Actor, req domain.CreateTaskRequest) (*domain.Task, error)
	List(ctx context.Context, filter domain.ListTasksFilter) ([]domain.Task, string, error)
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Update(ctx context.Context, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	Stats(ctx context.Context) (*domain.TaskStats, error)

	ListMine(ctx context.Context, userID string, filter domain.ListTasksFilter) ([]domain.Task, string, error)
	GetMine(ctx context.Context, userID, taskID string) (*domain.Task, error)
	UpdateStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error)
}

type taskStore interface {
	Put(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Update(ctx context.Context, taskID string, updates map[string]interface{}) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	List(ctx context.Context, filter domain.ListTasksFilter) ([]domain.Task, string, error)
	Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error)
}

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type departmentLookup interface {
	Get(ctx context.Context, departmentID string) (*domain.Department, error)
}

// attachmentPurger removes every attachment of a task before the task goes.
type attachmentPurger interface {
	PurgeTask(ctx context.Context, taskID string) error
}

type service struct {
	repo        taskStore
	users       userLookup
	departments departmentLookup
	attachments attachmentPurger
	sms         sns.SMSSender
	now         func() time.Time
}

// ServiceDeps wires the task service. SMSSender and Attachments are optional;
// a nil SMSSender disables assignment notifications.
type ServiceDeps struct {
	TaskRepo       taskStore
	UserRepo       userLookup
	DepartmentRepo departmentLookup
	Attachments    attachmentPurger
	SMSSender      sns.SMSSender
	Now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:        deps.TaskRepo,
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		attachments: deps.Attachments,
		sms:         deps.SMSSender,
		now:         deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Create(ctx context.Context, actor domain.Actor, req domain.CreateTaskRequest) (*domain.Task, error) {
	assignee, err := s.resolveAssignee(ctx, req.AssignedTo)
	if err != nil {
		return nil, err
	}
	deptID, err := s.resolveDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	priority := domain.TaskPriorityMedium
	if req.Priority != "" {
		priority = domain.TaskPriority(req.Priority)
	}
	now := s.now().UTC()
	t := &domain.Task{
		TaskID:       id.New(),
		Title:        req.Title,
		Description:  req.Description,
		Status:       domain.TaskStatusPending,
		Priority:     priority,
		DueDate:      due,
		AssignedTo:   assignee.UserID,
		DepartmentID: deptID,
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	s.notifyAssigned(ctx, assignee, t)
	return t, nil
}

func (s *service) List(ctx context.Context, filter domain.ListTasksFilter) ([]domain.Task, string, error) {
	if filter.Status != "" {
		if _, err := domain.ParseTaskStatus(filter.Status); err != nil {
			return nil, "", err
		}
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.repo.Get(ctx, taskID)
}

func (s *service) Update(ctx context.Context, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates[fieldTitle] = *req.Title
	}
	if req.Description != nil {
		updates[fieldDescription] = *req.Description
	}
	if req.Status != nil {
		st, err := domain.ParseTaskStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		updates[fieldStatus] = st
	}
	if req.Priority != nil {
		switch p := domain.TaskPriority(*req.Priority); p {
		case domain.TaskPriorityLow, domain.TaskPriorityMedium, domain.TaskPriorityHigh:
			updates[fieldPriority] = p
		default:
			return nil, fmt.Errorf("invalid priority: %w", domain.ErrBadRequest)
		}
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		updates[fieldDueDate] = due
	}
	var newAssignee *domain.User
	if req.AssignedTo != nil {
		u, err := s.resolveAssignee(ctx, *req.AssignedTo)
		if err != nil {
			return nil, err
		}
		newAssignee = u
		updates[fieldAssignedTo] = u.UserID
	}
	if req.DepartmentID != nil {
		deptID, err := s.resolveDepartment(ctx, req.DepartmentID)
		if err != nil {
			return nil, err
		}
		updates[fieldDepartmentID] = deptID
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, taskID)
	}

	var previous string
	if newAssignee != nil {
		current, err := s.repo.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		previous = current.AssignedTo
	}
	t, err := s.repo.Update(ctx, taskID, updates)
	if err != nil {
		return nil, err
	}
	if newAssignee != nil && newAssignee.UserID != previous {
		s.notifyAssigned(ctx, newAssignee, t)
	}
	return t, nil
}

// Delete removes the task's attachments first so no object outlives its task.
func (s *service) Delete(ctx context.Context, taskID string) error {
	if _, err := s.repo.Get(ctx, taskID); err != nil {
		return err
	}
	if s.attachments != nil {
		if err := s.attachments.PurgeTask(ctx, taskID); err != nil {
			return fmt.Errorf("purge attachments: %w", err)
		}
	}
	return s.repo.Delete(ctx, taskID)
}

func (s *service) Stats(ctx context.Context) (*domain.TaskStats, error) {
	return s.repo.Stats(ctx, s.now().UTC())
}

func (s *service) ListMine(ctx context.Context, userID string, filter domain.ListTasksFilter) ([]domain.Task, string, error) {
	filter.AssignedTo = userID
	return s.List(ctx, filter)
}

func (s *service) GetMine(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.AssignedTo != userID {
		return nil, fmt.Errorf("task is assigned to another user: %w", domain.ErrForbidden)
	}
	return t, nil
}

func (s *service) UpdateStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error) {
	st, err := domain.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetMine(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, taskID, map[string]interface{}{fieldStatus: st})
}

func (s *service) resolveAssignee(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("assignee %s does not exist: %w", userID, domain.ErrBadRequest)
		}
		return nil, err
	}
	if u.Status != domain.UserStatusActive {
		return nil, fmt.Errorf("assignee %s is inactive: %w", userID, domain.ErrBadRequest)
	}
	return u, nil
}

func (s *service) resolveDepartment(ctx context.Context, deptID *string) (*string, error) {
	if deptID == nil || *deptID == "" {
		return nil, nil
	}
	if _, err := s.departments.Get(ctx, *deptID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("department %s does not exist: %w", *deptID, domain.ErrBadRequest)
		}
		return nil, err
	}
	return deptID, nil
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("due_date must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
	}
	return &t, nil
}

func clampLimit(n int) int {
	switch {
	case n < 1:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}
