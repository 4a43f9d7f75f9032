package domain

import "time"

// EventType identifies a security-relevant event.
type EventType string

const (
	// EventScopeViolation records a rejected cross-tenant access attempt.
	// Rejected attempts are reported here, never audit-chained.
	EventScopeViolation EventType = "scope_violation"
	// EventChainIntegrityViolation records a broken audit hash chain. Fatal;
	// requires out-of-band investigation, never automatic repair.
	EventChainIntegrityViolation EventType = "chain_integrity_violation"
	// EventAccessDenied records a gRPC-level permission denial.
	EventAccessDenied EventType = "access_denied"
)

// SecurityEvent is published to the operator channel (Kafka → Loki).
type SecurityEvent struct {
	EventType   EventType `json:"eventType"`
	TenantID    string    `json:"tenantId,omitempty"`
	PrincipalID string    `json:"principalId,omitempty"`
	TargetType  string    `json:"targetType,omitempty"`
	TargetID    string    `json:"targetId,omitempty"`
	Operation   string    `json:"operation,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
