// Package seed bootstraps a fresh install with a department and an
// administrator so the API is usable before any staff are imported.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/repairdesk/internal/authorization"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"go.uber.org/zap"
)

const (
	DefaultDepartment = "Workshop"
	DefaultAdminName  = "Repair Desk Admin"
	DefaultAdminEmail = "admin@repairdesk.local"
)

type Defaults struct {
	Department string
	AdminName  string
	AdminEmail string
}

func (d Defaults) withDefaults() Defaults {
	if strings.TrimSpace(d.Department) == "" {
		d.Department = DefaultDepartment
	}
	if strings.TrimSpace(d.AdminName) == "" {
		d.AdminName = DefaultAdminName
	}
	if strings.TrimSpace(d.AdminEmail) == "" {
		d.AdminEmail = DefaultAdminEmail
	}
	return d
}

// EnsureDefaults is safe to run on every start.
func EnsureDefaults(ctx context.Context, users userdomain.Service, log *zap.Logger, defaults Defaults) error {
	if users == nil {
		return errors.New("seed user service is required")
	}
	defaults = defaults.withDefaults()

	department, err := users.EnsureDepartment(ctx, defaults.Department)
	if err != nil {
		return err
	}

	admin, err := users.Create(ctx, userdomain.CreateUserRequest{
		Name:  defaults.AdminName,
		Email: defaults.AdminEmail,
		Role:  authorization.RoleCompanyManager,
	})
	switch {
	case errors.Is(err, userdomain.ErrAlreadyExists):
		log.Debug("seed admin already present", zap.String("email", defaults.AdminEmail))
		return nil
	case err != nil:
		return err
	}

	log.Info("seeded defaults",
		zap.String("department_id", department.ID.String()),
		zap.String("admin_id", admin.ID.String()),
	)
	return nil
}
