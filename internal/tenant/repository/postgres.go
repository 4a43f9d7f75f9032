package repository

import (
	"context"
	"database/sql"
	"errors"

	"factory-data-platform/backend/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = "id, code, name, active, created_at"

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListActive returns all active tenants ordered by code.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	return r.list(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE active ORDER BY code")
}

// ListAll returns every tenant, active or not, ordered by code.
// Used by global principals, for whom inactive tenants stay visible.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*domain.Tenant, error) {
	return r.list(ctx, "SELECT "+tenantColumns+" FROM tenants ORDER BY code")
}

// Create persists the tenant to the database. The tenant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tenants (id, code, name, active, created_at) VALUES ($1, $2, $3, $4, $5)",
		t.ID, t.Code, t.Name, t.Active, t.CreatedAt)
	return err
}

// Update updates the existing tenant record in the database. Returns an error if the update fails.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET code = $2, name = $3, active = $4 WHERE id = $1",
		t.ID, t.Code, t.Name, t.Active)
	return err
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := s.Scan(&t.ID, &t.Code, &t.Name, &t.Active, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
