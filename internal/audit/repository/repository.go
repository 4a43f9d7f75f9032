package repository

import (
	"context"
	"time"

	"factory-data-platform/backend/internal/audit/domain"
	"factory-data-platform/backend/internal/db"
)

// Repository defines persistence for the audit chain and its checkpoints.
// The audit store is append-only: there is deliberately no update or delete
// method, for any caller.
type Repository interface {
	// Append inserts one audit record. Callers pass the transaction that also
	// carries the version bump, so both commit or roll back together.
	Append(ctx context.Context, q db.DBTX, rec *domain.AuditRecord) error
	// Head returns the most recent record of a lineage (by created_at, then
	// insertion order), or nil for a lineage with no history.
	Head(ctx context.Context, q db.DBTX, targetType, targetID string) (*domain.AuditRecord, error)
	// ListLineage returns a lineage's full history in chain order.
	ListLineage(ctx context.Context, q db.DBTX, targetType, targetID string) ([]*domain.AuditRecord, error)
	// ListLineageForTenants returns the lineage records whose tenant is in
	// tenantIDs. Used by scoped audit-trail reads.
	ListLineageForTenants(ctx context.Context, q db.DBTX, targetType, targetID string, tenantIDs []string) ([]*domain.AuditRecord, error)
	// Heads returns every lineage's current chain head in stable (type, id) order.
	Heads(ctx context.Context, q db.DBTX) ([]*domain.LineageHead, error)
	// HeadsAsOf returns each lineage's chain head considering only records
	// committed at or before asOf. Used to re-verify a past checkpoint.
	HeadsAsOf(ctx context.Context, q db.DBTX, asOf time.Time) ([]*domain.LineageHead, error)

	// InsertCheckpoint stores a daily checkpoint; a checkpoint already present
	// for the day is left untouched.
	InsertCheckpoint(ctx context.Context, q db.DBTX, cp *domain.Checkpoint) error
	GetCheckpoint(ctx context.Context, q db.DBTX, day time.Time) (*domain.Checkpoint, error)
}
