package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/user/domain"
	"github.com/smallbiznis/repairdesk/internal/user/repository"
	"github.com/smallbiznis/repairdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, &domain.Department{}, &domain.User{})
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreate_ValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateUserRequest{Name: " ", Email: "a@b.c", Role: authorization.RoleTechnician})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Ana", Email: "nope", Role: authorization.RoleTechnician})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Ana", Email: "ana@shop.io", Role: authorization.RoleSystem})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Ana", Email: "ana@shop.io", Role: authorization.RoleDepartmentManager})
	assert.ErrorIs(t, err, domain.ErrInvalidDepartment)
}

func TestCreate_RejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Ana", Email: "Ana@Shop.io", Role: authorization.RoleTechnician})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Ana 2", Email: "ana@shop.io", Role: authorization.RoleTechnician})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestListManagers_ScopesByDepartment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	electronics, err := svc.EnsureDepartment(ctx, "Electronics")
	require.NoError(t, err)
	again, err := svc.EnsureDepartment(ctx, "Electronics")
	require.NoError(t, err)
	assert.Equal(t, electronics.ID, again.ID)
	appliances, err := svc.EnsureDepartment(ctx, "Appliances")
	require.NoError(t, err)

	ceo, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Ceo", Email: "ceo@shop.io", Role: authorization.RoleCompanyManager})
	require.NoError(t, err)
	head, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Head", Email: "head@shop.io", Role: authorization.RoleDepartmentManager, DepartmentID: &electronics.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Other", Email: "other@shop.io", Role: authorization.RoleSectionSupervisor, DepartmentID: &appliances.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Tech", Email: "tech@shop.io", Role: authorization.RoleTechnician, DepartmentID: &electronics.ID})
	require.NoError(t, err)

	managers, err := svc.ListManagers(ctx, &electronics.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, m := range managers {
		ids = append(ids, m.ID.String())
	}
	assert.ElementsMatch(t, []string{ceo.ID.String(), head.ID.String()}, ids)

	topOnly, err := svc.ListManagers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, topOnly, 1)
	assert.Equal(t, ceo.ID, topOnly[0].ID)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetByID(context.Background(), 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetDepartment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	dept, err := svc.EnsureDepartment(ctx, "Workshop")
	require.NoError(t, err)

	found, err := svc.GetDepartment(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Workshop", found.Name)

	_, err = svc.GetDepartment(ctx, 98765)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
