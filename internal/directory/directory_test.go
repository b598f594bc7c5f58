package directory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensio/expense-workflow/internal/models"
)

type fakeUserSource struct {
	users  map[string]*models.User
	admins map[string]*models.User
}

func (f *fakeUserSource) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return user, nil
}

func (f *fakeUserSource) FirstAdminOfCompany(ctx context.Context, companyID string) (*models.User, error) {
	return f.admins[companyID], nil
}

func newTestService() *Service {
	admin := &models.User{ID: "u-admin", Role: models.RoleAdmin, CompanyID: "c1"}
	manager := &models.User{ID: "u-manager", Role: models.RoleManager, CompanyID: "c1"}
	employee := &models.User{ID: "u-emp", Role: models.RoleEmployee, CompanyID: "c1", ManagerID: "u-manager"}

	return NewService(&fakeUserSource{
		users: map[string]*models.User{
			admin.ID:    admin,
			manager.ID:  manager,
			employee.ID: employee,
		},
		admins: map[string]*models.User{"c1": admin},
	})
}

func TestRoleOf(t *testing.T) {
	svc := newTestService()

	role, err := svc.RoleOf(context.Background(), "u-manager")
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, role)

	_, err = svc.RoleOf(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestManagerOf(t *testing.T) {
	svc := newTestService()

	t.Run("has manager", func(t *testing.T) {
		managerID, err := svc.ManagerOf(context.Background(), "u-emp")
		require.NoError(t, err)
		assert.Equal(t, "u-manager", managerID)
	})

	t.Run("no manager", func(t *testing.T) {
		managerID, err := svc.ManagerOf(context.Background(), "u-admin")
		require.NoError(t, err)
		assert.Empty(t, managerID)
	})
}

func TestAnyAdminOf(t *testing.T) {
	svc := newTestService()

	t.Run("company with admin", func(t *testing.T) {
		adminID, err := svc.AnyAdminOf(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "u-admin", adminID)
	})

	t.Run("company without admin", func(t *testing.T) {
		adminID, err := svc.AnyAdminOf(context.Background(), "c2")
		require.NoError(t, err)
		assert.Empty(t, adminID)
	})
}
