// Package scope computes which tenant partitions a principal may act on.
//
// Decisions are computed per call and must not be cached across a request
// boundary where the principal's role or assignments could have changed.
package scope

import (
	"context"
	"errors"
	"sort"

	principaldomain "factory-data-platform/backend/internal/principal/domain"
	tenantrepo "factory-data-platform/backend/internal/tenant/repository"
)

var (
	// ErrNotAssigned is returned when a scoped principal selects a tenant outside its accessible set.
	ErrNotAssigned = errors.New("scope: tenant not assigned to principal")
	// ErrTenantInactive is returned when a global principal selects an inactive tenant.
	ErrTenantInactive = errors.New("scope: tenant is inactive")
	// ErrDeselectRestricted is returned when a scoped principal tries to clear its tenant selection.
	ErrDeselectRestricted = errors.New("scope: only global roles may operate unscoped")
)

// Decision is the outcome of resolving a principal's accessible tenant set.
// Global principals additionally see inactive tenants on read paths; the
// accessible set itself always holds active tenants only.
type Decision struct {
	Global  bool
	tenants map[string]struct{}
}

// Accessible reports whether tenantID is in the accessible set. Global
// decisions allow every tenant, active or not, so oversight roles are never
// blind to history.
func (d Decision) Accessible(tenantID string) bool {
	if d.Global {
		return true
	}
	_, ok := d.tenants[tenantID]
	return ok
}

// TenantIDs returns the accessible tenant IDs in sorted order.
func (d Decision) TenantIDs() []string {
	out := make([]string, 0, len(d.tenants))
	for id := range d.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolver computes scope decisions against the current tenant table.
type Resolver struct {
	tenants tenantrepo.Repository
}

// NewResolver returns a Resolver backed by the given tenant repository.
func NewResolver(tenants tenantrepo.Repository) *Resolver {
	return &Resolver{tenants: tenants}
}

// Resolve computes the accessible tenant set for the principal.
// Global roles get every active tenant; scoped roles get the intersection of
// their assignment set with active tenants. The active set is read fresh on
// every call, never cached across the active/inactive boundary.
func (r *Resolver) Resolve(ctx context.Context, p *principaldomain.Principal) (Decision, error) {
	active, err := r.tenants.ListActive(ctx)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Global: p.Role.IsGlobal(), tenants: make(map[string]struct{})}
	if d.Global {
		for _, t := range active {
			d.tenants[t.ID] = struct{}{}
		}
		return d, nil
	}
	activeSet := make(map[string]struct{}, len(active))
	for _, t := range active {
		activeSet[t.ID] = struct{}{}
	}
	for _, id := range p.TenantIDs {
		if _, ok := activeSet[id]; ok {
			d.tenants[id] = struct{}{}
		}
	}
	return d, nil
}

// EnsureActive checks that tenantID names an existing active tenant, reading
// the tenant table fresh. Returns ErrTenantInactive for an unknown or
// deactivated tenant.
func (r *Resolver) EnsureActive(ctx context.Context, tenantID string) error {
	t, err := r.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if t == nil || !t.Active {
		return ErrTenantInactive
	}
	return nil
}

// SelectTenant validates that the principal may select tenantID as its current
// working tenant. Scoped principals must hold the tenant in their accessible
// set; global principals may select any active tenant.
func (r *Resolver) SelectTenant(ctx context.Context, p *principaldomain.Principal, tenantID string) error {
	if p.Role.IsGlobal() {
		return r.EnsureActive(ctx, tenantID)
	}
	d, err := r.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if !d.Accessible(tenantID) {
		return ErrNotAssigned
	}
	return nil
}

// DeselectTenant validates clearing the principal's tenant selection
// (an unscoped context). Restricted to global roles.
func (r *Resolver) DeselectTenant(p *principaldomain.Principal) error {
	if !p.Role.IsGlobal() {
		return ErrDeselectRestricted
	}
	return nil
}

// NewDecision builds a Decision directly from a tenant ID set. Used by tests
// and by callers that already resolved scope for the request.
func NewDecision(global bool, tenantIDs ...string) Decision {
	d := Decision{Global: global, tenants: make(map[string]struct{}, len(tenantIDs))}
	for _, id := range tenantIDs {
		d.tenants[id] = struct{}{}
	}
	return d
}
