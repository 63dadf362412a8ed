package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/infrastructure/smtp"
	"github.com/go-taskboard-api/internal/pkg/id"
	"github.com/go-taskboard-api/internal/pkg/otp"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName         = "name"
	fieldPhone        = "phone"
	fieldRole         = "role"
	fieldStatus       = "status"
	fieldDepartmentID = "department_id"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type Service interface {
	Provision(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	List(ctx context.Context, filter domain.ListUsersFilter) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID, email string) error
	ScanPage(ctx context.Context, filter domain.ListUsersFilter) ([]domain.User, string, error)
}

type departmentLookup interface {
	Get(ctx context.Context, departmentID string) (*domain.Department, error)
}

type service struct {
	repo        userStore
	departments departmentLookup
	mailer      smtp.Mailer
	otpTTL      time.Duration
	now         func() time.Time
	generateOTP func() (string, error)
}

type ServiceDeps struct {
	UserRepo       userStore
	DepartmentRepo departmentLookup
	Mailer         smtp.Mailer
	OTPTTL         time.Duration
	Now            func() time.Time
	GenerateOTP    func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:        deps.UserRepo,
		departments: deps.DepartmentRepo,
		mailer:      deps.Mailer,
		otpTTL:      deps.OTPTTL,
		now:         deps.Now,
		generateOTP: deps.GenerateOTP,
	}
	if s.otpTTL <= 0 {
		s.otpTTL = 10 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateOTP == nil {
		s.generateOTP = otp.Generate
	}
	return s
}

// Provision creates an account pending first login and emails its first code.
// If the email cannot be delivered the account is removed again, so a failed
// request leaves nothing behind and can simply be retried.
func (s *service) Provision(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := domain.NormalizeEmail(req.Email)
	role := domain.RoleUser
	if req.Role != "" {
		r, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}
	deptID, err := s.resolveDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	code, err := s.generateOTP()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiry := now.Add(s.otpTTL)
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         role,
		Status:       domain.UserStatusActive,
		FirstLogin:   true,
		OTP:          &code,
		OTPExpiry:    &expiry,
		DepartmentID: deptID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.mailer.SendEmail(ctx, email, otp.Subject, otp.EmailBody(code, s.otpTTL)); err != nil {
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), u.UserID, email); delErr != nil {
			slog.ErrorContext(ctx, "failed to roll back provisioned user", "user_id", u.UserID, "err", delErr)
		}
		return nil, fmt.Errorf("deliver otp: %w", err)
	}
	slog.InfoContext(ctx, "user provisioned", "user_id", u.UserID, "role", role)

	u.OTP, u.OTPExpiry = nil, nil
	return u, nil
}

func (s *service) List(ctx context.Context, filter domain.ListUsersFilter) ([]domain.User, string, error) {
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Role != "" {
		if _, err := domain.ParseRole(filter.Role); err != nil {
			return nil, "", err
		}
	}
	return s.repo.ScanPage(ctx, filter)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			updates[fieldPhone] = nil
		} else {
			updates[fieldPhone] = *req.Phone
		}
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		updates[fieldRole] = role
	}
	if req.Status != nil {
		switch st := domain.UserStatus(*req.Status); st {
		case domain.UserStatusActive, domain.UserStatusInactive:
			updates[fieldStatus] = st
		default:
			return nil, fmt.Errorf("invalid status: %w", domain.ErrBadRequest)
		}
	}
	if req.DepartmentID != nil {
		deptID, err := s.resolveDepartment(ctx, req.DepartmentID)
		if err != nil {
			return nil, err
		}
		// An empty department id detaches the user.
		updates[fieldDepartmentID] = deptID
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, u.UserID, u.Email)
}

// resolveDepartment returns nil for an absent or empty id, and checks that
// any other id exists.
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
