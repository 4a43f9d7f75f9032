// Package audit implements the tamper-evident audit chain: every accepted
// mutation appends one immutable record whose hash links to the previous hash
// of its lineage, a daily checkpoint folds all chain heads into a single
// digest, and the verifier replays lineages to localize breaks.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	auditdomain "factory-data-platform/backend/internal/audit/domain"
	"factory-data-platform/backend/internal/audit/canonical"
	auditrepo "factory-data-platform/backend/internal/audit/repository"
	"factory-data-platform/backend/internal/db"
)

// Tombstone is the canonical after-image of a delete.
const Tombstone = `{"deleted":true}`

// ComputeHash returns the hex SHA-256 of previous_hash ‖ canonical_bytes.
// previous is the hex string of the prior record's hash; nil for the first
// record of a lineage, in which case only the canonical bytes are hashed.
func ComputeHash(previous *string, canonicalBytes []byte) string {
	h := sha256.New()
	if previous != nil {
		h.Write([]byte(*previous))
	}
	h.Write(canonicalBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// Writer appends records to the audit chain.
type Writer struct {
	repo auditrepo.Repository
	now  func() time.Time
}

// NewWriter returns a Writer backed by the given repository.
func NewWriter(repo auditrepo.Repository) *Writer {
	return &Writer{repo: repo, now: time.Now}
}

// WithClock overrides the clock for testing.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Repo exposes the backing repository for read paths (lineage listings).
func (w *Writer) Repo() auditrepo.Repository {
	return w.repo
}

// AppendParams describe one chain append.
type AppendParams struct {
	TenantID   string
	TargetType string
	TargetID   string
	Action     string
	ActorID    string
	// Before is nil on create.
	Before json.RawMessage
	// After is ignored for delete actions, which always hash the tombstone.
	After json.RawMessage
}

// Append canonicalizes the after-image, links it to the lineage's current
// head, and inserts the new record. It must run inside the same transaction
// as the version bump it describes: the record row lock taken by the
// concurrency controller serializes concurrent writers on the lineage, so the
// head read here cannot race into a fork, and a failed commit rolls back both
// the mutation and the audit record together.
//
// The stored images are the canonical bytes, not the caller's raw bytes.
// Verification recomputes hashes over the stored after-image, so the row must
// hold exactly what was hashed; a column that re-renders equivalent JSON
// (number lexical forms, key order) would make legitimate records fail.
func (w *Writer) Append(ctx context.Context, tx db.DBTX, p AppendParams) (*auditdomain.AuditRecord, error) {
	after := p.After
	if p.Action == "delete" {
		after = json.RawMessage(Tombstone)
	}
	canonicalBytes, err := canonical.Canonicalize(after)
	if err != nil {
		return nil, err
	}
	before := p.Before
	if before != nil {
		if before, err = canonical.Canonicalize(p.Before); err != nil {
			return nil, err
		}
	}

	head, err := w.repo.Head(ctx, tx, p.TargetType, p.TargetID)
	if err != nil {
		return nil, err
	}
	var previous *string
	if head != nil {
		previous = &head.CurrentHash
	}

	rec := &auditdomain.AuditRecord{
		ID:           uuid.New().String(),
		TenantID:     p.TenantID,
		TargetType:   p.TargetType,
		TargetID:     p.TargetID,
		Action:       p.Action,
		ActorID:      p.ActorID,
		BeforeImage:  before,
		AfterImage:   canonicalBytes,
		PreviousHash: previous,
		CurrentHash:  ComputeHash(previous, canonicalBytes),
		CreatedAt:    w.now().UTC(),
	}
	if err := w.repo.Append(ctx, tx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
