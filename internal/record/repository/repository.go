package repository

import (
	"context"

	"factory-data-platform/backend/internal/db"
	"factory-data-platform/backend/internal/record/domain"
)

// Repository defines persistence for guarded records. Methods take a db.DBTX
// so callers can scope them to the transaction that also appends the audit record.
type Repository interface {
	GetByRef(ctx context.Context, q db.DBTX, ref domain.Ref) (*domain.Record, error)
	// GetByRefForUpdate reads the record under a row-level exclusive lock
	// (SELECT ... FOR UPDATE). Must be called inside a transaction; the lock is
	// held until that transaction commits or rolls back.
	GetByRefForUpdate(ctx context.Context, q db.DBTX, ref domain.Ref) (*domain.Record, error)
	Insert(ctx context.Context, q db.DBTX, rec *domain.Record) error
	Update(ctx context.Context, q db.DBTX, rec *domain.Record) error
	Delete(ctx context.Context, q db.DBTX, ref domain.Ref) error
	ListByTenant(ctx context.Context, q db.DBTX, tenantID, recordType string, limit, offset int32) ([]*domain.Record, error)
}
