package domain

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("invalid task status %q: %w", s, ErrBadRequest)
	}
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

type Task struct {
	TaskID       string       `json:"id" dynamodbav:"task_id"`
	Title        string       `json:"title" dynamodbav:"title"`
	Description  string       `json:"description" dynamodbav:"description"`
	Status       TaskStatus   `json:"status" dynamodbav:"status"`
	Priority     TaskPriority `json:"priority" dynamodbav:"priority"`
	DueDate      *time.Time   `json:"due_date" dynamodbav:"due_date"`
	AssignedTo   string       `json:"assigned_to" dynamodbav:"assigned_to"`
	DepartmentID *string      `json:"department_id" dynamodbav:"department_id,omitempty"`
	CreatedBy    string       `json:"created_by" dynamodbav:"created_by"`
	CreatedAt    time.Time    `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time    `json:"updated" dynamodbav:"updated_at"`
}

type CreateTaskRequest struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Description  string  `json:"description" validate:"max=5000"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate      string  `json:"due_date"` // expected format: YYYY-MM-DD
	AssignedTo   string  `json:"assigned_to" validate:"required"`
	DepartmentID *string `json:"department_id"`
}

type UpdateTaskRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	Status       *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority     *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate      *string `json:"due_date"` // expected format: YYYY-MM-DD
	AssignedTo   *string `json:"assigned_to"`
	DepartmentID *string `json:"department_id"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// ListTasksFilter narrows a task listing. Empty fields match everything.
type ListTasksFilter struct {
	Status       string
	Priority     string
	AssignedTo   string
	DepartmentID string
	Limit        int
	Cursor       string
}

// TaskStats counts tasks per status for the admin dashboard.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}
