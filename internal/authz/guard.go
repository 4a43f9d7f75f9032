// Package authz is the explicit authorization guard every data-access entry
// point calls before touching a tenant-owned record. There is no implicit
// row filtering anywhere; admin and service paths go through the same guard
// with an explicit global-scope decision, never an ungated connection.
package authz

import (
	"context"
	"errors"
	"fmt"

	"factory-data-platform/backend/internal/policy/engine"
	recorddomain "factory-data-platform/backend/internal/record/domain"
	"factory-data-platform/backend/internal/scope"
)

// ErrScopeViolation is returned when a principal touches a tenant outside its
// accessible set. Surfaced as access denied; never retried; reported as a
// security event, not audit-chained (it is a rejected attempt, not a
// committed mutation).
var ErrScopeViolation = errors.New("authz: tenant outside principal scope")

// ErrDeleteDenied is returned when a hard delete is not covered by the
// allowlisted exception. Soft-deactivation is the standard path.
var ErrDeleteDenied = errors.New("authz: delete denied; use soft-deactivation")

// Operation classifies the access being checked.
type Operation string

const (
	OpRead   Operation = "read"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Guard accepts or rejects operations against tenant-owned records. It
// performs no mutation itself.
type Guard struct {
	deletePolicy engine.Evaluator
}

// NewGuard returns a Guard. deletePolicy decides the narrow hard-delete
// exception; nil means deletes are always denied.
func NewGuard(deletePolicy engine.Evaluator) *Guard {
	return &Guard{deletePolicy: deletePolicy}
}

// Authorize checks one operation against the tenant that owns (or, for
// insert, will own) the target record.
func (g *Guard) Authorize(d scope.Decision, op Operation, targetTenant string) error {
	if targetTenant == "" {
		return fmt.Errorf("authz: %s without target tenant", op)
	}
	if d.Accessible(targetTenant) {
		return nil
	}
	return ErrScopeViolation
}

// AuthorizeTenantChange checks a write that moves a record between tenants.
// The predicate must hold for both the old and the new owner, so a scoped
// principal can neither launder a record into a tenant it should not own nor
// exfiltrate data into a tenant it controls.
func (g *Guard) AuthorizeTenantChange(d scope.Decision, oldTenant, newTenant string) error {
	if err := g.Authorize(d, OpUpdate, oldTenant); err != nil {
		return err
	}
	return g.Authorize(d, OpUpdate, newTenant)
}

// AuthorizeDelete checks scope for the owning tenant and then consults the
// delete-exception policy. Denied deletes are not scope violations; callers
// should fall back to soft-deactivation.
func (g *Guard) AuthorizeDelete(ctx context.Context, d scope.Decision, rec *recorddomain.Record) error {
	if err := g.Authorize(d, OpDelete, rec.TenantID); err != nil {
		return err
	}
	if g.deletePolicy == nil {
		return ErrDeleteDenied
	}
	res, err := g.deletePolicy.EvaluateDelete(ctx, rec)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return fmt.Errorf("%w: %s", ErrDeleteDenied, res.Reason)
	}
	return nil
}

// RequireGlobal ensures the decision carries global scope. Used for
// operations restricted to oversight roles (checkpointing, arbitrary lineage
// verification).
func RequireGlobal(d scope.Decision) error {
	if !d.Global {
		return ErrScopeViolation
	}
	return nil
}
