package domain

import (
	"strings"
	"time"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is an account. The OTP challenge lives on the user itself: at most one
// code is live at a time and issuing a new one overwrites the previous one.
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	Email        string     `json:"email" dynamodbav:"email"`
	Name         string     `json:"name" dynamodbav:"name"`
	Phone        *string    `json:"phone" dynamodbav:"phone"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	Role         Role       `json:"role" dynamodbav:"role"`
	Status       UserStatus `json:"status" dynamodbav:"status"`
	FirstLogin   bool       `json:"first_login" dynamodbav:"first_login"`
	OTP          *string    `json:"-" dynamodbav:"otp"`
	OTPExpiry    *time.Time `json:"-" dynamodbav:"otp_expiry"`
	DepartmentID *string    `json:"department_id" dynamodbav:"department_id,omitempty"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Name         string  `json:"name" validate:"required"`
	Phone        *string `json:"phone" validate:"omitempty,e164"`
	Role         string  `json:"role" validate:"omitempty,oneof=admin user"`
	DepartmentID *string `json:"department_id"`
}

// UpdateUserRequest changes profile and access fields. Email is immutable
// because it anchors the uniqueness record.
type UpdateUserRequest struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone" validate:"omitempty,e164"`
	Role         *string `json:"role" validate:"omitempty,oneof=admin user"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive"`
	DepartmentID *string `json:"department_id"`
}

// ListUsersFilter narrows an admin user listing. Empty fields match everything.
type ListUsersFilter struct {
	Role         string
	Status       string
	DepartmentID string
	Limit        int
	Cursor       string
}

// NormalizeEmail lowercases and trims an address so lookups and the
// uniqueness record agree on one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
