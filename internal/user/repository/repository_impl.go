package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertDepartment(ctx context.Context, db *gorm.DB, department *domain.Department) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO departments (id, name, created_at) VALUES (?, ?, ?)`,
		department.ID,
		department.Name,
		department.CreatedAt,
	).Error
}

func (r *repo) FindDepartmentByName(ctx context.Context, db *gorm.DB, name string) (*domain.Department, error) {
	var department domain.Department
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at FROM departments WHERE name = ?`,
		strings.TrimSpace(name),
	).Scan(&department).Error
	if err != nil {
		return nil, err
	}
	if department.ID == 0 {
		return nil, nil
	}
	return &department, nil
}

func (r *repo) FindDepartmentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Department, error) {
	var department domain.Department
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at FROM departments WHERE id = ?`,
		id,
	).Scan(&department).Error
	if err != nil {
		return nil, err
	}
	if department.ID == 0 {
		return nil, nil
	}
	return &department, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, name, email, role, department_id, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.DepartmentID,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, role, department_id, active, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, role, department_id, active, created_at, updated_at
		 FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, filter domain.RecipientFilter) ([]*domain.User, error) {
	var users []*domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{}).Where("active = ?", true)
	if len(filter.Roles) > 0 {
		stmt = stmt.Where("role IN ?", filter.Roles)
	}
	if filter.DepartmentID != nil {
		stmt = stmt.Where("department_id = ?", *filter.DepartmentID)
	}
	if err := stmt.Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
