package repository

import (
	"context"

	"factory-data-platform/backend/internal/principal/domain"
)

// Repository defines persistence for principals and their tenant assignments.
// Principals are created by the external identity system; assignments are
// mutated only by global-role principals through the guarded mutation path.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	Create(ctx context.Context, p *domain.Principal) error
	SetSelectedTenant(ctx context.Context, principalID string, tenantID *string) error
	AddAssignment(ctx context.Context, principalID, tenantID string) error
	RemoveAssignment(ctx context.Context, principalID, tenantID string) error
}
