package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"gorm.io/gorm"
)

type RecipientFilter struct {
	Roles        []authorization.Role
	DepartmentID *snowflake.ID
}

type Repository interface {
	InsertDepartment(ctx context.Context, db *gorm.DB, department *Department) error
	FindDepartmentByName(ctx context.Context, db *gorm.DB, name string) (*Department, error)
	FindDepartmentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Department, error)
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ListActive(ctx context.Context, db *gorm.DB, filter RecipientFilter) ([]*User, error)
}
