package repository

import (
	"context"
	"database/sql"
	"errors"

	"factory-data-platform/backend/internal/db"
	"factory-data-platform/backend/internal/record/domain"
)

type PostgresRepository struct{}

// NewPostgresRepository returns a record repository. The query target is
// passed per call so reads can run on the pool and writes inside a transaction.
func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

const recordColumns = "id, tenant_id, record_type, payload, version, active, finalized, created_at, updated_at"

// GetByRef returns the record for ref, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByRef(ctx context.Context, q db.DBTX, ref domain.Ref) (*domain.Record, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE record_type = $1 AND id = $2", ref.Type, ref.ID)
	return scanRecord(row)
}

// GetByRefForUpdate returns the record for ref under a row-level exclusive
// lock, or nil if not found. The lock covers the read-check-increment-append
// sequence of a guarded mutation.
func (r *PostgresRepository) GetByRefForUpdate(ctx context.Context, q db.DBTX, ref domain.Ref) (*domain.Record, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE record_type = $1 AND id = $2 FOR UPDATE", ref.Type, ref.ID)
	return scanRecord(row)
}

// Insert persists a new record. The record must have ID and Version set.
func (r *PostgresRepository) Insert(ctx context.Context, q db.DBTX, rec *domain.Record) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO records (id, tenant_id, record_type, payload, version, active, finalized, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.TenantID, rec.RecordType, []byte(rec.Payload), rec.Version,
		rec.Active, rec.Finalized, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// Update writes the record's mutable columns, including the bumped version.
func (r *PostgresRepository) Update(ctx context.Context, q db.DBTX, rec *domain.Record) error {
	_, err := q.ExecContext(ctx,
		`UPDATE records SET tenant_id = $3, payload = $4, version = $5, active = $6, finalized = $7, updated_at = $8
		 WHERE record_type = $1 AND id = $2`,
		rec.RecordType, rec.ID, rec.TenantID, []byte(rec.Payload), rec.Version,
		rec.Active, rec.Finalized, rec.UpdatedAt)
	return err
}

// Delete removes the record row. Reached only through the allowlisted delete
// exception; the lineage's audit records stay behind with a tombstone head.
func (r *PostgresRepository) Delete(ctx context.Context, q db.DBTX, ref domain.Ref) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM records WHERE record_type = $1 AND id = $2", ref.Type, ref.ID)
	return err
}

// ListByTenant returns records of one type owned by the tenant, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, q db.DBTX, tenantID, recordType string, limit, offset int32) ([]*domain.Record, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE tenant_id = $1 AND record_type = $2 ORDER BY updated_at DESC LIMIT $3 OFFSET $4",
		tenantID, recordType, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.RecordType, &payload, &rec.Version,
			&rec.Active, &rec.Finalized, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Payload = payload
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func scanRecord(row *sql.Row) (*domain.Record, error) {
	var rec domain.Record
	var payload []byte
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.RecordType, &payload, &rec.Version,
		&rec.Active, &rec.Finalized, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Payload = payload
	return &rec, nil
}
