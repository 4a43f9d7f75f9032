package engine

import (
	"context"

	recorddomain "factory-data-platform/backend/internal/record/domain"
)

// DeleteResult holds the result of delete-exception policy evaluation.
type DeleteResult struct {
	Allowed bool
	Reason  string
}

// Evaluator decides whether a hard delete falls under the narrow allowlisted
// exception. Everything not allowed here goes through soft-deactivation, which
// is an ordinary audited update.
type Evaluator interface {
	EvaluateDelete(ctx context.Context, rec *recorddomain.Record) (DeleteResult, error)
}
