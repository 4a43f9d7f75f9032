package scope

import (
	"context"
	"errors"
	"reflect"
	"testing"

	principaldomain "factory-data-platform/backend/internal/principal/domain"
	tenantdomain "factory-data-platform/backend/internal/tenant/domain"
)

// fakeTenantRepo is an in-memory tenant repository for tests.
type fakeTenantRepo struct {
	tenants map[string]*tenantdomain.Tenant
}

func newFakeTenantRepo(tenants ...*tenantdomain.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{tenants: make(map[string]*tenantdomain.Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeTenantRepo) GetByID(_ context.Context, id string) (*tenantdomain.Tenant, error) {
	return r.tenants[id], nil
}

func (r *fakeTenantRepo) ListActive(_ context.Context) ([]*tenantdomain.Tenant, error) {
	var out []*tenantdomain.Tenant
	for _, t := range r.tenants {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTenantRepo) ListAll(_ context.Context) ([]*tenantdomain.Tenant, error) {
	var out []*tenantdomain.Tenant
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTenantRepo) Create(_ context.Context, t *tenantdomain.Tenant) error {
	r.tenants[t.ID] = t
	return nil
}

func (r *fakeTenantRepo) Update(_ context.Context, t *tenantdomain.Tenant) error {
	r.tenants[t.ID] = t
	return nil
}

func testRepo() *fakeTenantRepo {
	return newFakeTenantRepo(
		&tenantdomain.Tenant{ID: "t1", Code: "one", Active: true},
		&tenantdomain.Tenant{ID: "t2", Code: "two", Active: true},
		&tenantdomain.Tenant{ID: "t3", Code: "three", Active: false},
	)
}

func TestResolve_GlobalRole(t *testing.T) {
	r := NewResolver(testRepo())
	admin := &principaldomain.Principal{ID: "p1", Role: principaldomain.RoleAdmin}

	d, err := r.Resolve(context.Background(), admin)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !d.Global {
		t.Error("admin decision should be global")
	}
	if got := d.TenantIDs(); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("TenantIDs = %v, want [t1 t2]", got)
	}
	// Global roles can still reach inactive tenants for oversight reads.
	if !d.Accessible("t3") {
		t.Error("global decision should allow inactive tenant t3")
	}
}

func TestResolve_ScopedRole(t *testing.T) {
	r := NewResolver(testRepo())
	planner := &principaldomain.Principal{
		ID:        "p2",
		Role:      principaldomain.RolePlanner,
		TenantIDs: []string{"t1", "t3"},
	}

	d, err := r.Resolve(context.Background(), planner)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Global {
		t.Error("planner decision should not be global")
	}
	// t3 is assigned but inactive, so the intersection drops it.
	if got := d.TenantIDs(); !reflect.DeepEqual(got, []string{"t1"}) {
		t.Errorf("TenantIDs = %v, want [t1]", got)
	}
	if d.Accessible("t2") {
		t.Error("unassigned tenant t2 should not be accessible")
	}
	if d.Accessible("t3") {
		t.Error("inactive tenant t3 should not be accessible to a scoped role")
	}
}

func TestResolve_ScopedRoleNoAssignments(t *testing.T) {
	r := NewResolver(testRepo())
	operator := &principaldomain.Principal{ID: "p3", Role: principaldomain.RoleOperator}

	d, err := r.Resolve(context.Background(), operator)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(d.TenantIDs()) != 0 {
		t.Errorf("TenantIDs = %v, want empty", d.TenantIDs())
	}
}

func TestResolve_DeactivationTakesEffect(t *testing.T) {
	repo := testRepo()
	r := NewResolver(repo)
	planner := &principaldomain.Principal{
		ID:        "p2",
		Role:      principaldomain.RolePlanner,
		TenantIDs: []string{"t1"},
	}

	d, err := r.Resolve(context.Background(), planner)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !d.Accessible("t1") {
		t.Fatal("t1 should be accessible before deactivation")
	}

	repo.tenants["t1"].Active = false

	d, err = r.Resolve(context.Background(), planner)
	if err != nil {
		t.Fatalf("Resolve after deactivation: %v", err)
	}
	if d.Accessible("t1") {
		t.Error("t1 should not be accessible after deactivation")
	}
}

func TestEnsureActive(t *testing.T) {
	r := NewResolver(testRepo())

	if err := r.EnsureActive(context.Background(), "t1"); err != nil {
		t.Errorf("active tenant: %v", err)
	}
	if err := r.EnsureActive(context.Background(), "t3"); !errors.Is(err, ErrTenantInactive) {
		t.Errorf("inactive tenant: want ErrTenantInactive, got %v", err)
	}
	if err := r.EnsureActive(context.Background(), "missing"); !errors.Is(err, ErrTenantInactive) {
		t.Errorf("unknown tenant: want ErrTenantInactive, got %v", err)
	}
}

func TestSelectTenant(t *testing.T) {
	r := NewResolver(testRepo())
	admin := &principaldomain.Principal{ID: "p1", Role: principaldomain.RoleAdmin}
	planner := &principaldomain.Principal{
		ID:        "p2",
		Role:      principaldomain.RolePlanner,
		TenantIDs: []string{"t1"},
	}

	if err := r.SelectTenant(context.Background(), admin, "t1"); err != nil {
		t.Errorf("admin select active: %v", err)
	}
	if err := r.SelectTenant(context.Background(), admin, "t3"); !errors.Is(err, ErrTenantInactive) {
		t.Errorf("admin select inactive: want ErrTenantInactive, got %v", err)
	}
	if err := r.SelectTenant(context.Background(), admin, "missing"); !errors.Is(err, ErrTenantInactive) {
		t.Errorf("admin select missing: want ErrTenantInactive, got %v", err)
	}
	if err := r.SelectTenant(context.Background(), planner, "t1"); err != nil {
		t.Errorf("planner select assigned: %v", err)
	}
	if err := r.SelectTenant(context.Background(), planner, "t2"); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("planner select unassigned: want ErrNotAssigned, got %v", err)
	}
}

func TestDeselectTenant(t *testing.T) {
	r := NewResolver(testRepo())

	auditor := &principaldomain.Principal{ID: "p4", Role: principaldomain.RoleAuditor}
	if err := r.DeselectTenant(auditor); err != nil {
		t.Errorf("auditor deselect: %v", err)
	}

	storekeeper := &principaldomain.Principal{ID: "p5", Role: principaldomain.RoleStorekeeper, TenantIDs: []string{"t1"}}
	if err := r.DeselectTenant(storekeeper); !errors.Is(err, ErrDeselectRestricted) {
		t.Errorf("storekeeper deselect: want ErrDeselectRestricted, got %v", err)
	}
}
