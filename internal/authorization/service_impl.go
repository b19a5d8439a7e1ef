package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectRequest     = "request"
	ObjectRequestPart = "request_part"
	ObjectRequestCost = "request_cost"
	ObjectSparePart   = "spare_part"
)

const (
	ActionRequestCreate = "request.create"
	ActionRequestView   = "request.view"

	ActionRequestPartManage = "request_part.manage"
	ActionRequestCostCreate = "request_cost.create"

	ActionSparePartView   = "spare_part.view"
	ActionSparePartCreate = "spare_part.create"
	ActionSparePartUpdate = "spare_part.update"
	ActionSparePartDelete = "spare_part.delete"
	ActionSparePartAdjust = "spare_part.adjust"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
)

// Service answers coarse "may this role touch this object" questions. Status
// transitions are decided by the request guard, not by policy rows.
type Service interface {
	Authorize(ctx context.Context, role Role, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

// NewEnforcer persists policies through the gorm adapter and seeds the defaults.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role Role, object string, action string) error {
	if !role.Valid() {
		return ErrInvalidActor
	}
	if object == "" || action == "" {
		return ErrInvalidObject
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", role.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subject(role Role) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{}
	grant := func(roles []Role, object string, actions ...string) {
		for _, role := range roles {
			for _, action := range actions {
				policies = append(policies, []string{subject(role), object, action})
			}
		}
	}

	everyone := []Role{
		RoleCompanyManager, RoleDeputyManager, RoleDepartmentManager, RoleSectionSupervisor,
		RoleTechnician, RoleWarehouseKeeper, RoleCustomerService,
	}
	managers := ManagerRoles()
	workshop := append(append([]Role{}, managers...), RoleTechnician)
	stockHandlers := append(append([]Role{}, workshop...), RoleWarehouseKeeper)

	grant(everyone, ObjectRequest, ActionRequestView)
	grant(append(append([]Role{}, managers...), RoleCustomerService, RoleTechnician), ObjectRequest, ActionRequestCreate)
	grant(stockHandlers, ObjectRequestPart, ActionRequestPartManage)
	grant(workshop, ObjectRequestCost, ActionRequestCostCreate)
	grant(everyone, ObjectSparePart, ActionSparePartView)
	grant([]Role{RoleWarehouseKeeper}, ObjectSparePart,
		ActionSparePartCreate,
		ActionSparePartUpdate,
		ActionSparePartDelete,
		ActionSparePartAdjust,
	)
	grant([]Role{RoleSystem}, ObjectRequest, ActionRequestView)

	missing := make([][]string, 0, len(policies))
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if !has {
			missing = append(missing, policy)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	_, err := enforcer.AddPolicies(missing)
	return err
}
