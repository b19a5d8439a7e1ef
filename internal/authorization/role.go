package authorization

import "strings"

// Role is the closed set of staff roles known to the core.
type Role string

const (
	RoleCompanyManager    Role = "company_manager"
	RoleDeputyManager     Role = "deputy_manager"
	RoleDepartmentManager Role = "department_manager"
	RoleSectionSupervisor Role = "section_supervisor"
	RoleTechnician        Role = "technician"
	RoleWarehouseKeeper   Role = "warehouse_keeper"
	RoleCustomerService   Role = "customer_service"
	RoleSystem            Role = "system"
)

// Tier groups roles by how much of the request lifecycle they control.
type Tier int

const (
	TierNone Tier = iota
	TierStaff
	TierManager
	TierTop
)

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

func (r Role) Valid() bool {
	switch r {
	case RoleCompanyManager, RoleDeputyManager, RoleDepartmentManager, RoleSectionSupervisor,
		RoleTechnician, RoleWarehouseKeeper, RoleCustomerService, RoleSystem:
		return true
	default:
		return false
	}
}

func (r Role) Tier() Tier {
	switch r {
	case RoleCompanyManager, RoleDeputyManager:
		return TierTop
	case RoleDepartmentManager, RoleSectionSupervisor:
		return TierManager
	case RoleTechnician, RoleWarehouseKeeper, RoleCustomerService:
		return TierStaff
	case RoleSystem:
		return TierNone
	default:
		return TierNone
	}
}

// IsManager covers every manager-tier role, including the top tier.
func (r Role) IsManager() bool {
	return r.Tier() >= TierManager
}

func (r Role) IsTop() bool {
	return r.Tier() == TierTop
}

// DepartmentScoped reports whether the role only sees requests of its own department.
func (r Role) DepartmentScoped() bool {
	return r == RoleDepartmentManager || r == RoleSectionSupervisor
}

func ManagerRoles() []Role {
	return []Role{RoleCompanyManager, RoleDeputyManager, RoleDepartmentManager, RoleSectionSupervisor}
}

func (r Role) String() string {
	return string(r)
}
