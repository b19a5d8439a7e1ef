package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/user/domain"
	pkgdb "github.com/smallbiznis/repairdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if !req.Role.Valid() || req.Role == authorization.RoleSystem {
		return domain.User{}, domain.ErrInvalidRole
	}
	if req.Role.DepartmentScoped() && req.DepartmentID == nil {
		return domain.User{}, domain.ErrInvalidDepartment
	}

	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.DepartmentID != nil {
			department, err := s.repo.FindDepartmentByID(ctx, tx, *req.DepartmentID)
			if err != nil {
				return err
			}
			if department == nil {
				return domain.ErrInvalidDepartment
			}
		}
		existing, err := s.repo.FindByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyExists
		}

		now := s.clock.Now()
		user = domain.User{
			ID:           s.genID.Generate(),
			Name:         name,
			Email:        email,
			Role:         req.Role,
			DepartmentID: req.DepartmentID,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.repo.Insert(ctx, tx, &user)
	})
	if pkgdb.IsUniqueViolation(err) {
		return domain.User{}, domain.ErrAlreadyExists
	}
	if err != nil {
		return domain.User{}, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", user.Role.String()))
	return user, nil
}

func (s *Service) EnsureDepartment(ctx context.Context, name string) (domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Department{}, domain.ErrInvalidName
	}

	var department domain.Department
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindDepartmentByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			department = *existing
			return nil
		}
		department = domain.Department{
			ID:        s.genID.Generate(),
			Name:      name,
			CreatedAt: s.clock.Now(),
		}
		return s.repo.InsertDepartment(ctx, tx, &department)
	})
	if pkgdb.IsUniqueViolation(err) {
		// A concurrent seed created it first.
		existing, findErr := s.repo.FindDepartmentByName(ctx, s.db.WithContext(ctx), name)
		if findErr == nil && existing != nil {
			return *existing, nil
		}
	}
	if err != nil {
		return domain.Department{}, err
	}
	return department, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.User, error) {
	if id == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) GetDepartment(ctx context.Context, id snowflake.ID) (domain.Department, error) {
	if id == 0 {
		return domain.Department{}, domain.ErrInvalidDepartment
	}
	department, err := s.repo.FindDepartmentByID(ctx, s.db, id)
	if err != nil {
		return domain.Department{}, err
	}
	if department == nil {
		return domain.Department{}, domain.ErrNotFound
	}
	return *department, nil
}

func (s *Service) ListManagers(ctx context.Context, departmentID *snowflake.ID) ([]domain.User, error) {
	top, err := s.repo.ListActive(ctx, s.db, domain.RecipientFilter{
		Roles: []authorization.Role{authorization.RoleCompanyManager, authorization.RoleDeputyManager},
	})
	if err != nil {
		return nil, err
	}

	var scoped []*domain.User
	if departmentID != nil {
		scoped, err = s.repo.ListActive(ctx, s.db, domain.RecipientFilter{
			Roles:        []authorization.Role{authorization.RoleDepartmentManager, authorization.RoleSectionSupervisor},
			DepartmentID: departmentID,
		})
		if err != nil {
			return nil, err
		}
	}

	return flatten(append(top, scoped...)), nil
}

func (s *Service) ListActiveByRole(ctx context.Context, role authorization.Role) ([]domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	items, err := s.repo.ListActive(ctx, s.db, domain.RecipientFilter{Roles: []authorization.Role{role}})
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func flatten(items []*domain.User) []domain.User {
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users
}
