package domain

import "time"

// Principal is an actor identity supplied by the external identity system:
// a role plus the set of tenant (factory) IDs the actor is assigned to.
// SelectedTenantID disambiguates which single tenant a scoped write targets;
// it is nullable for global roles, which may operate unscoped.
type Principal struct {
	ID               string
	DisplayName      string
	Role             Role
	TenantIDs        []string
	SelectedTenantID *string
	CreatedAt        time.Time
}

type Role string

const (
	// RoleAdmin and RoleAuditor are global: implicit access to every tenant
	// without explicit assignment. Auditors get read-oriented oversight;
	// the distinction between the two is enforced by callers, not this layer.
	RoleAdmin   Role = "admin"
	RoleAuditor Role = "auditor"

	// Scoped roles: access is exactly the assigned tenant set.
	RolePlanner     Role = "planner"
	RoleStorekeeper Role = "storekeeper"
	RoleOperator    Role = "operator"
)

// IsGlobal reports whether the role grants implicit access to all tenants.
func (r Role) IsGlobal() bool {
	return r == RoleAdmin || r == RoleAuditor
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuditor, RolePlanner, RoleStorekeeper, RoleOperator:
		return true
	}
	return false
}

// AssignedTo reports whether the principal is explicitly assigned to tenantID.
func (p *Principal) AssignedTo(tenantID string) bool {
	for _, id := range p.TenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}
