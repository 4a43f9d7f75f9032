package events

import (
	"context"

	"factory-data-platform/backend/internal/events/domain"
)

// Emitter publishes security events to the operator channel. Best-effort for
// scope violations; integrity alerts are additionally logged by callers so
// they are never silently swallowed.
type Emitter interface {
	Emit(ctx context.Context, event *domain.SecurityEvent) error
}
