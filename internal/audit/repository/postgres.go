package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"factory-data-platform/backend/internal/audit/domain"
	"factory-data-platform/backend/internal/db"
)

type PostgresRepository struct{}

// NewPostgresRepository returns an audit chain repository.
func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

const auditColumns = "id, seq, tenant_id, target_type, target_id, action, actor_id, before_image, after_image, previous_hash, current_hash, created_at"

const lineageOrder = " ORDER BY created_at, seq"

// Append inserts one audit record in the caller's transaction.
func (r *PostgresRepository) Append(ctx context.Context, q db.DBTX, rec *domain.AuditRecord) error {
	// Image columns are TEXT holding the exact canonical bytes that were
	// hashed; bind as strings so the driver never retypes them.
	var before any
	if rec.BeforeImage != nil {
		before = string(rec.BeforeImage)
	}
	var prev any
	if rec.PreviousHash != nil {
		prev = *rec.PreviousHash
	}
	row := q.QueryRowContext(ctx,
		`INSERT INTO audit_records (id, tenant_id, target_type, target_id, action, actor_id, before_image, after_image, previous_hash, current_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING seq`,
		rec.ID, rec.TenantID, rec.TargetType, rec.TargetID, rec.Action, rec.ActorID,
		before, string(rec.AfterImage), prev, rec.CurrentHash, rec.CreatedAt)
	return row.Scan(&rec.Seq)
}

// Head returns the most recent record of a lineage, or nil if the lineage has no history.
func (r *PostgresRepository) Head(ctx context.Context, q db.DBTX, targetType, targetID string) (*domain.AuditRecord, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+auditColumns+" FROM audit_records WHERE target_type = $1 AND target_id = $2"+
			" ORDER BY created_at DESC, seq DESC LIMIT 1",
		targetType, targetID)
	rec, err := scanAuditRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListLineage returns the lineage's history ordered by timestamp then insertion order.
func (r *PostgresRepository) ListLineage(ctx context.Context, q db.DBTX, targetType, targetID string) ([]*domain.AuditRecord, error) {
	return r.queryRecords(ctx, q,
		"SELECT "+auditColumns+" FROM audit_records WHERE target_type = $1 AND target_id = $2"+lineageOrder,
		targetType, targetID)
}

// ListLineageForTenants returns the lineage records owned by one of tenantIDs,
// in chain order. An empty tenant set yields no rows.
func (r *PostgresRepository) ListLineageForTenants(ctx context.Context, q db.DBTX, targetType, targetID string, tenantIDs []string) ([]*domain.AuditRecord, error) {
	if len(tenantIDs) == 0 {
		return nil, nil
	}
	return r.queryRecords(ctx, q,
		"SELECT "+auditColumns+" FROM audit_records WHERE target_type = $1 AND target_id = $2 AND tenant_id = ANY($3)"+lineageOrder,
		targetType, targetID, pq.Array(tenantIDs))
}

// Heads returns each lineage's current chain head in (target_type, target_id) order.
func (r *PostgresRepository) Heads(ctx context.Context, q db.DBTX) ([]*domain.LineageHead, error) {
	return r.queryHeads(ctx, q,
		`SELECT DISTINCT ON (target_type, target_id) target_type, target_id, current_hash
		 FROM audit_records
		 ORDER BY target_type, target_id, created_at DESC, seq DESC`)
}

// HeadsAsOf returns each lineage's chain head over records committed at or before asOf.
func (r *PostgresRepository) HeadsAsOf(ctx context.Context, q db.DBTX, asOf time.Time) ([]*domain.LineageHead, error) {
	return r.queryHeads(ctx, q,
		`SELECT DISTINCT ON (target_type, target_id) target_type, target_id, current_hash
		 FROM audit_records WHERE created_at <= $1
		 ORDER BY target_type, target_id, created_at DESC, seq DESC`, asOf)
}

func (r *PostgresRepository) queryHeads(ctx context.Context, q db.DBTX, query string, args ...any) ([]*domain.LineageHead, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.LineageHead
	for rows.Next() {
		var h domain.LineageHead
		if err := rows.Scan(&h.TargetType, &h.TargetID, &h.Hash); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// InsertCheckpoint stores the day's checkpoint; no-op if one already exists for the day.
func (r *PostgresRepository) InsertCheckpoint(ctx context.Context, q db.DBTX, cp *domain.Checkpoint) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_checkpoints (day, head_hash, lineage_count, created_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (day) DO NOTHING`,
		cp.Day, cp.HeadHash, cp.LineageCount, cp.CreatedAt)
	return err
}

// GetCheckpoint returns the checkpoint for the given day, or nil if absent.
func (r *PostgresRepository) GetCheckpoint(ctx context.Context, q db.DBTX, day time.Time) (*domain.Checkpoint, error) {
	row := q.QueryRowContext(ctx,
		"SELECT day, head_hash, lineage_count, created_at FROM audit_checkpoints WHERE day = $1", day)
	var cp domain.Checkpoint
	if err := row.Scan(&cp.Day, &cp.HeadHash, &cp.LineageCount, &cp.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}

func (r *PostgresRepository) queryRecords(ctx context.Context, q db.DBTX, query string, args ...any) ([]*domain.AuditRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuditRow(s scanner) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var before, after []byte
	var prev sql.NullString
	if err := s.Scan(&rec.ID, &rec.Seq, &rec.TenantID, &rec.TargetType, &rec.TargetID,
		&rec.Action, &rec.ActorID, &before, &after, &prev, &rec.CurrentHash, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if before != nil {
		rec.BeforeImage = before
	}
	rec.AfterImage = after
	if prev.Valid {
		rec.PreviousHash = &prev.String
	}
	return &rec, nil
}
