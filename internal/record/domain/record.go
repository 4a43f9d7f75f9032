package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is a generic mutable business record guarded by this layer: it
// carries tenant ownership, a version counter for compare-and-swap writes,
// and a JSON payload owned by the business workflow.
type Record struct {
	ID         string
	TenantID   string
	RecordType string
	Payload    json.RawMessage
	Version    int64
	Active     bool
	Finalized  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ref identifies one record lineage: a (record type, record id) pair.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) String() string { return r.Type + "/" + r.ID }

// Action is the kind of guarded mutation applied to a record.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Mutation describes the field changes of one guarded write. Fields are merged
// into the record payload; nil pointers leave the corresponding attribute
// untouched. TenantID moves the record to a new owning tenant and triggers a
// re-check of the caller's scope against the new tenant.
type Mutation struct {
	Fields   map[string]any
	TenantID *string
	Active   *bool
	Finalize *bool
}

// Validate rejects malformed mutations before they reach the version check,
// so an invalid payload produces no version bump and no audit record.
func (m *Mutation) Validate() error {
	if m == nil {
		return &ValidationError{Reason: "mutation is nil"}
	}
	if len(m.Fields) == 0 && m.TenantID == nil && m.Active == nil && m.Finalize == nil {
		return &ValidationError{Reason: "mutation is empty"}
	}
	for k, v := range m.Fields {
		if k == "" {
			return &ValidationError{Reason: "field name must not be empty"}
		}
		if _, err := json.Marshal(v); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("field %q is not JSON-encodable", k)}
		}
	}
	if m.TenantID != nil && *m.TenantID == "" {
		return &ValidationError{Reason: "tenant reassignment target must not be empty"}
	}
	return nil
}

// ConflictError reports a stale-version write. CurrentVersion carries the
// authoritative version so the caller can refetch, reapply, and retry.
type ConflictError struct {
	Ref            Ref
	CurrentVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %s: version conflict, current version is %d", e.Ref, e.CurrentVersion)
}

// ValidationError reports a malformed mutation payload, rejected before any
// version check or audit write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid mutation: " + e.Reason
}
