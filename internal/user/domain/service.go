package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
)

type CreateUserRequest struct {
	Name         string
	Email        string
	Role         authorization.Role
	DepartmentID *snowflake.ID
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	EnsureDepartment(ctx context.Context, name string) (Department, error)
	GetByID(ctx context.Context, id snowflake.ID) (User, error)
	GetDepartment(ctx context.Context, id snowflake.ID) (Department, error)
	// ListManagers returns active manager-tier users. Department-scoped roles
	// are included only when they belong to departmentID; top-tier roles always are.
	ListManagers(ctx context.Context, departmentID *snowflake.ID) ([]User, error)
	ListActiveByRole(ctx context.Context, role authorization.Role) ([]User, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrInvalidDepartment = errors.New("invalid_department")
	ErrNotFound          = errors.New("not_found")
	ErrAlreadyExists     = errors.New("already_exists")
)
