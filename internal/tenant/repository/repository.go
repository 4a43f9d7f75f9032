package repository

import (
	"context"

	"factory-data-platform/backend/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	ListActive(ctx context.Context) ([]*domain.Tenant, error)
	ListAll(ctx context.Context) ([]*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
	Update(ctx context.Context, t *domain.Tenant) error
}
