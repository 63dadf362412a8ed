package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) Delete(ctx context.Context, userID, email string) error {
	return m.Called(ctx, userID, email).Error(0)
}
func (m *mockUserStore) ScanPage(ctx context.Context, filter domain.ListUsersFilter) ([]domain.User, string, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.User), args.String(1), args.Error(2)
}

type mockDepartmentLookup struct{ mock.Mock }

func (m *mockDepartmentLookup) Get(ctx context.Context, departmentID string) (*domain.Department, error) {
	args := m.Called(ctx, departmentID)
	if d, _ := args.Get(0).(*domain.Department); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

// --- helpers ---

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newService(us *mockUserStore, ds *mockDepartmentLookup, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		UserRepo:       us,
		DepartmentRepo: ds,
		Mailer:         ml,
		OTPTTL:         10 * time.Minute,
		Now:            func() time.Time { return now },
		GenerateOTP:    func() (string, error) { return "123456", nil },
	})
}

func ptr[T any](v T) *T { return &v }

func baseReq() domain.CreateUserRequest {
	return domain.CreateUserRequest{Email: "New.Hire@Example.com", Name: "New Hire"}
}

// --- Provision ---

func TestProvision_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	var stored domain.User
	us.On("GetByEmail", mock.Anything, "new.hire@example.com").Return(nil, domain.ErrNotFound)
	us.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { stored = *args.Get(1).(*domain.User) }).
		Return(nil)
	ml.On("SendEmail", mock.Anything, "new.hire@example.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "123456")
	})).Return(nil)

	u, err := newService(us, nil, ml).Provision(context.Background(), baseReq())
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, u.Role)
	assert.True(t, u.FirstLogin)
	assert.Empty(t, u.PasswordHash)
	assert.Nil(t, u.OTP)

	require.NotNil(t, stored.OTP)
	assert.Equal(t, "123456", *stored.OTP)
	assert.True(t, stored.OTPExpiry.Equal(now.Add(10*time.Minute)))
	assert.Equal(t, domain.StateOTPIssued, stored.State(now))
	us.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestProvision_DuplicateEmail_NoEmailSent(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, "new.hire@example.com").Return(&domain.User{UserID: "u0"}, nil)

	_, err := newService(us, nil, ml).Provision(context.Background(), baseReq())
	assert.ErrorIs(t, err, domain.ErrConflict)
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	us.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProvision_ConcurrentDuplicate_StoreConflict(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	us.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("email already registered: %w", domain.ErrConflict))

	_, err := newService(us, nil, ml).Provision(context.Background(), baseReq())
	assert.ErrorIs(t, err, domain.ErrConflict)
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProvision_EmailFailure_RollsBackUser(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	var createdID string
	us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	us.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { createdID = args.Get(1).(*domain.User).UserID }).
		Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("relay down"))
	us.On("Delete", mock.Anything, mock.Anything, "new.hire@example.com").Return(nil)

	_, err := newService(us, nil, ml).Provision(context.Background(), baseReq())
	assert.ErrorContains(t, err, "relay down")
	us.AssertCalled(t, "Delete", mock.Anything, createdID, "new.hire@example.com")
}

func TestProvision_InvalidRole(t *testing.T) {
	req := baseReq()
	req.Role = "root"
	_, err := newService(&mockUserStore{}, nil, nil).Provision(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestProvision_UnknownDepartment(t *testing.T) {
	ds := &mockDepartmentLookup{}
	ds.On("Get", mock.Anything, "d404").Return(nil, domain.ErrNotFound)
	req := baseReq()
	req.DepartmentID = ptr("d404")

	_, err := newService(&mockUserStore{}, ds, nil).Provision(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- List ---

func TestList_ClampsPageSize(t *testing.T) {
	us := &mockUserStore{}
	us.On("ScanPage", mock.Anything, domain.ListUsersFilter{Limit: maxPageSize}).Return([]domain.User{}, "", nil)
	us.On("ScanPage", mock.Anything, domain.ListUsersFilter{Limit: defaultPageSize}).Return([]domain.User{}, "", nil)

	svc := newService(us, nil, nil)
	_, _, err := svc.List(context.Background(), domain.ListUsersFilter{Limit: 5000})
	require.NoError(t, err)
	_, _, err = svc.List(context.Background(), domain.ListUsersFilter{})
	require.NoError(t, err)
	us.AssertExpectations(t)
}

// --- Update ---

func TestUpdate_EmptyRequest_ReturnsExistingUser(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Name: "Ana"}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)

	u, err := newService(us, nil, nil).Update(context.Background(), "u1", domain.UpdateUserRequest{})
	require.NoError(t, err)
	assert.Equal(t, existing, u)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_InvalidRole(t *testing.T) {
	_, err := newService(&mockUserStore{}, nil, nil).Update(context.Background(), "u1", domain.UpdateUserRequest{
		Role: ptr("superuser"),
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestUpdate_EmptyDepartmentDetaches(t *testing.T) {
	us := &mockUserStore{}
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		v, ok := m[fieldDepartmentID]
		return ok && v.(*string) == nil && m[fieldStatus] == domain.UserStatusInactive
	})).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newService(us, nil, nil).Update(context.Background(), "u1", domain.UpdateUserRequest{
		DepartmentID: ptr(""),
		Status:       ptr("inactive"),
	})
	require.NoError(t, err)
	us.AssertExpectations(t)
}

// --- Delete ---

func TestDelete_ReleasesEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "ana@example.com"}, nil)
	us.On("Delete", mock.Anything, "u1", "ana@example.com").Return(nil)

	require.NoError(t, newService(us, nil, nil).Delete(context.Background(), "u1"))
	us.AssertExpectations(t)
}

func TestDelete_NotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u404").Return(nil, domain.ErrNotFound)

	err := newService(us, nil, nil).Delete(context.Background(), "u404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
