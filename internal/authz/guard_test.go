package authz

import (
	"context"
	"errors"
	"testing"

	"factory-data-platform/backend/internal/policy/engine"
	recorddomain "factory-data-platform/backend/internal/record/domain"
	"factory-data-platform/backend/internal/scope"
)

// fakeEvaluator returns a fixed delete-policy result.
type fakeEvaluator struct {
	result engine.DeleteResult
	err    error
}

func (f *fakeEvaluator) EvaluateDelete(context.Context, *recorddomain.Record) (engine.DeleteResult, error) {
	return f.result, f.err
}

func TestAuthorize(t *testing.T) {
	g := NewGuard(nil)

	scoped := scope.NewDecision(false, "t1")
	global := scope.NewDecision(true)

	tests := []struct {
		name    string
		d       scope.Decision
		op      Operation
		tenant  string
		wantErr error
	}{
		{"scoped in set", scoped, OpUpdate, "t1", nil},
		{"scoped outside set", scoped, OpUpdate, "t2", ErrScopeViolation},
		{"scoped insert outside set", scoped, OpInsert, "t2", ErrScopeViolation},
		{"global any tenant", global, OpUpdate, "t9", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(tt.d, tt.op, tt.tenant)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := g.Authorize(scoped, OpUpdate, ""); err == nil {
		t.Error("Authorize with empty tenant: want error")
	}
}

func TestAuthorizeTenantChange(t *testing.T) {
	g := NewGuard(nil)
	d := scope.NewDecision(false, "t1", "t2")

	if err := g.AuthorizeTenantChange(d, "t1", "t2"); err != nil {
		t.Errorf("both in set: %v", err)
	}
	// Moving a record out of scope leaks it; moving one in launders it.
	if err := g.AuthorizeTenantChange(d, "t1", "t9"); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("new owner outside set: want ErrScopeViolation, got %v", err)
	}
	if err := g.AuthorizeTenantChange(d, "t9", "t1"); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("old owner outside set: want ErrScopeViolation, got %v", err)
	}
}

func TestAuthorizeDelete(t *testing.T) {
	d := scope.NewDecision(false, "t1")
	rec := &recorddomain.Record{ID: "r1", TenantID: "t1", RecordType: "work_order_draft"}

	t.Run("policy allows", func(t *testing.T) {
		g := NewGuard(&fakeEvaluator{result: engine.DeleteResult{Allowed: true}})
		if err := g.AuthorizeDelete(context.Background(), d, rec); err != nil {
			t.Errorf("AuthorizeDelete: %v", err)
		}
	})

	t.Run("policy denies", func(t *testing.T) {
		g := NewGuard(&fakeEvaluator{result: engine.DeleteResult{Allowed: false, Reason: "finalized"}})
		if err := g.AuthorizeDelete(context.Background(), d, rec); !errors.Is(err, ErrDeleteDenied) {
			t.Errorf("AuthorizeDelete: want ErrDeleteDenied, got %v", err)
		}
	})

	t.Run("nil policy denies", func(t *testing.T) {
		g := NewGuard(nil)
		if err := g.AuthorizeDelete(context.Background(), d, rec); !errors.Is(err, ErrDeleteDenied) {
			t.Errorf("AuthorizeDelete: want ErrDeleteDenied, got %v", err)
		}
	})

	t.Run("scope checked before policy", func(t *testing.T) {
		g := NewGuard(&fakeEvaluator{result: engine.DeleteResult{Allowed: true}})
		other := &recorddomain.Record{ID: "r2", TenantID: "t9", RecordType: "work_order_draft"}
		if err := g.AuthorizeDelete(context.Background(), d, other); !errors.Is(err, ErrScopeViolation) {
			t.Errorf("AuthorizeDelete out of scope: want ErrScopeViolation, got %v", err)
		}
	})

	t.Run("policy error propagates", func(t *testing.T) {
		wantErr := errors.New("opa down")
		g := NewGuard(&fakeEvaluator{err: wantErr})
		if err := g.AuthorizeDelete(context.Background(), d, rec); !errors.Is(err, wantErr) {
			t.Errorf("AuthorizeDelete: want %v, got %v", wantErr, err)
		}
	})
}

func TestRequireGlobal(t *testing.T) {
	if err := RequireGlobal(scope.NewDecision(true)); err != nil {
		t.Errorf("global: %v", err)
	}
	if err := RequireGlobal(scope.NewDecision(false, "t1")); !errors.Is(err, ErrScopeViolation) {
		t.Errorf("scoped: want ErrScopeViolation, got %v", err)
	}
}
