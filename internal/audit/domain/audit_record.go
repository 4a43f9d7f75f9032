package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditRecord is one immutable link in a lineage's hash chain. The only legal
// operation on the audit store is append: records are never updated or
// deleted, by code paths or by administrators.
type AuditRecord struct {
	ID         string
	Seq        int64
	TenantID   string
	TargetType string
	TargetID   string
	Action     string
	ActorID    string
	// BeforeImage is nil on create.
	BeforeImage json.RawMessage
	// AfterImage is the canonical subject of the hash; a tombstone on delete.
	AfterImage json.RawMessage
	// PreviousHash is nil only for the first record of a lineage.
	PreviousHash *string
	CurrentHash  string
	CreatedAt    time.Time
}

// LineageHead is the most recent chain hash for one (target type, target id) lineage.
type LineageHead struct {
	TargetType string
	TargetID   string
	Hash       string
}

// IntegrityError reports a broken hash chain. It is evidence that the append
// atomicity guarantee was violated or that stored history was tampered with;
// it is never repaired automatically and must reach an operator.
type IntegrityError struct {
	TargetType string
	TargetID   string
	Index      int
	Expected   *string
	Actual     *string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("audit chain broken for %s/%s at index %d: expected previous %s, stored %s",
		e.TargetType, e.TargetID, e.Index, hashOrNull(e.Expected), hashOrNull(e.Actual))
}

func hashOrNull(h *string) string {
	if h == nil {
		return "<null>"
	}
	return *h
}
