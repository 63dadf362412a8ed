package department

import (
	"context"
	"testing"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDepartmentStore struct{ mock.Mock }

func (m *mockDepartmentStore) Put(ctx context.Context, d *domain.Department) error {
	return m.Called(ctx, d).Error(0)
}
func (m *mockDepartmentStore) Get(ctx context.Context, departmentID string) (*domain.Department, error) {
	args := m.Called(ctx, departmentID)
	if d, _ := args.Get(0).(*domain.Department); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDepartmentStore) Scan(ctx context.Context) ([]domain.Department, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Department), args.Error(1)
}
func (m *mockDepartmentStore) FindByName(ctx context.Context, name string) (*domain.Department, error) {
	args := m.Called(ctx, name)
	if d, _ := args.Get(0).(*domain.Department); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDepartmentStore) Update(ctx context.Context, departmentID string, updates map[string]interface{}) error {
	return m.Called(ctx, departmentID, updates).Error(0)
}
func (m *mockDepartmentStore) HardDelete(ctx context.Context, departmentID string) error {
	return m.Called(ctx, departmentID).Error(0)
}

type mockMemberChecker struct{ mock.Mock }

func (m *mockMemberChecker) HasDepartmentMembers(ctx context.Context, departmentID string) (bool, error) {
	args := m.Called(ctx, departmentID)
	return args.Bool(0), args.Error(1)
}

func newService(ds *mockDepartmentStore, mc *mockMemberChecker) Service {
	return NewService(ServiceDeps{
		DepartmentRepo: ds,
		UserRepo:       mc,
		Now:            func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}

func TestCreate_TrimsNameAndPersists(t *testing.T) {
	ds := &mockDepartmentStore{}
	ds.On("FindByName", mock.Anything, "Finance").Return(nil, domain.ErrNotFound)
	ds.On("Put", mock.Anything, mock.AnythingOfType("*domain.Department")).Return(nil)

	d, err := newService(ds, nil).Create(context.Background(), domain.DepartmentInput{Name: "  Finance "})
	require.NoError(t, err)
	assert.Equal(t, "Finance", d.Name)
	assert.NotEmpty(t, d.DepartmentID)
	ds.AssertExpectations(t)
}

func TestCreate_DuplicateName(t *testing.T) {
	ds := &mockDepartmentStore{}
	ds.On("FindByName", mock.Anything, "Finance").Return(&domain.Department{DepartmentID: "d1"}, nil)

	_, err := newService(ds, nil).Create(context.Background(), domain.DepartmentInput{Name: "Finance"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	ds.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestUpdate_KeepingOwnNameIsAllowed(t *testing.T) {
	ds := &mockDepartmentStore{}
	ds.On("FindByName", mock.Anything, "Finance").Return(&domain.Department{DepartmentID: "d1"}, nil)
	ds.On("Update", mock.Anything, "d1", mock.Anything).Return(nil)
	ds.On("Get", mock.Anything, "d1").Return(&domain.Department{DepartmentID: "d1", Name: "Finance", Description: "Money"}, nil)

	d, err := newService(ds, nil).Update(context.Background(), "d1", domain.DepartmentInput{Name: "Finance", Description: "Money"})
	require.NoError(t, err)
	assert.Equal(t, "Money", d.Description)
}

func TestDelete_WithMembersIsConflict(t *testing.T) {
	ds := &mockDepartmentStore{}
	mc := &mockMemberChecker{}
	ds.On("Get", mock.Anything, "d1").Return(&domain.Department{DepartmentID: "d1"}, nil)
	mc.On("HasDepartmentMembers", mock.Anything, "d1").Return(true, nil)

	err := newService(ds, mc).Delete(context.Background(), "d1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	ds.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

func TestDelete_Empty(t *testing.T) {
	ds := &mockDepartmentStore{}
	mc := &mockMemberChecker{}
	ds.On("Get", mock.Anything, "d1").Return(&domain.Department{DepartmentID: "d1"}, nil)
	mc.On("HasDepartmentMembers", mock.Anything, "d1").Return(false, nil)
	ds.On("HardDelete", mock.Anything, "d1").Return(nil)

	require.NoError(t, newService(ds, mc).Delete(context.Background(), "d1"))
	ds.AssertExpectations(t)
}

func TestDelete_NotFound(t *testing.T) {
	ds := &mockDepartmentStore{}
	ds.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	err := newService(ds, &mockMemberChecker{}).Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
