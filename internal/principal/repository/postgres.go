package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"factory-data-platform/backend/internal/principal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a principal repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the principal for id with its tenant assignments loaded, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, display_name, role, selected_tenant_id, created_at FROM principals WHERE id = $1", id)
	var p domain.Principal
	var selected sql.NullString
	var role string
	if err := row.Scan(&p.ID, &p.DisplayName, &role, &selected, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Role = domain.Role(role)
	if selected.Valid {
		p.SelectedTenantID = &selected.String
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT tenant_id FROM principal_tenants WHERE principal_id = $1 ORDER BY tenant_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tid string
		if err := rows.Scan(&tid); err != nil {
			return nil, err
		}
		p.TenantIDs = append(p.TenantIDs, tid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persists the principal and its assignments. The principal must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Principal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var selected any
	if p.SelectedTenantID != nil {
		selected = *p.SelectedTenantID
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO principals (id, display_name, role, selected_tenant_id, created_at) VALUES ($1, $2, $3, $4, $5)",
		p.ID, p.DisplayName, string(p.Role), selected, p.CreatedAt); err != nil {
		return err
	}
	for _, tid := range p.TenantIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO principal_tenants (principal_id, tenant_id, created_at) VALUES ($1, $2, $3)",
			p.ID, tid, time.Now().UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetSelectedTenant updates the principal's current tenant selection. A nil
// tenantID clears the selection; callers validate through the scope resolver
// before writing.
func (r *PostgresRepository) SetSelectedTenant(ctx context.Context, principalID string, tenantID *string) error {
	var selected any
	if tenantID != nil {
		selected = *tenantID
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE principals SET selected_tenant_id = $2 WHERE id = $1", principalID, selected)
	return err
}

// AddAssignment assigns the principal to the tenant. Idempotent.
func (r *PostgresRepository) AddAssignment(ctx context.Context, principalID, tenantID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO principal_tenants (principal_id, tenant_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		principalID, tenantID, time.Now().UTC())
	return err
}

// RemoveAssignment removes the principal's assignment to the tenant.
func (r *PostgresRepository) RemoveAssignment(ctx context.Context, principalID, tenantID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM principal_tenants WHERE principal_id = $1 AND tenant_id = $2", principalID, tenantID)
	return err
}
