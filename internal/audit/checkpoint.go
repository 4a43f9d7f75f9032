package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	auditdomain "factory-data-platform/backend/internal/audit/domain"
	auditrepo "factory-data-platform/backend/internal/audit/repository"
	"factory-data-platform/backend/internal/db"
)

// Checkpointer folds all lineage heads into one dated digest. An external
// scheduler invokes it once per calendar day; redundant invocations are safe.
type Checkpointer struct {
	repo auditrepo.Repository
	now  func() time.Time
}

// NewCheckpointer returns a Checkpointer backed by the given repository.
func NewCheckpointer(repo auditrepo.Repository) *Checkpointer {
	return &Checkpointer{repo: repo, now: time.Now}
}

// WithClock overrides the clock for testing.
func (c *Checkpointer) WithClock(now func() time.Time) *Checkpointer {
	c.now = now
	return c
}

// HeadDigest hashes the concatenated (head_hash, target_type, target_id)
// tuples. heads must already be in stable (target_type, target_id) order.
func HeadDigest(heads []*auditdomain.LineageHead) string {
	h := sha256.New()
	for _, head := range heads {
		h.Write([]byte(head.Hash))
		h.Write([]byte{0})
		h.Write([]byte(head.TargetType))
		h.Write([]byte{0})
		h.Write([]byte(head.TargetID))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MakeCheckpoint snapshots every lineage's chain head and stores the digest
// keyed by the current UTC day. Idempotent: a second call on the same day
// observes the existing row and returns it unchanged.
func (c *Checkpointer) MakeCheckpoint(ctx context.Context, q db.DBTX) (*auditdomain.Checkpoint, error) {
	now := c.now().UTC()
	day := now.Truncate(24 * time.Hour)

	if existing, err := c.repo.GetCheckpoint(ctx, q, day); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	heads, err := c.repo.HeadsAsOf(ctx, q, now)
	if err != nil {
		return nil, err
	}
	cp := &auditdomain.Checkpoint{
		Day:          day,
		HeadHash:     HeadDigest(heads),
		LineageCount: int64(len(heads)),
		CreatedAt:    now,
	}
	if err := c.repo.InsertCheckpoint(ctx, q, cp); err != nil {
		return nil, err
	}
	// A racing scheduler may have won the insert; the stored row is authoritative.
	stored, err := c.repo.GetCheckpoint(ctx, q, day)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return cp, nil
}

// VerifyCheckpoint recomputes the head digest and compares it against the
// stored checkpoint for the day. Returns (false, nil) when they differ and
// (true, nil) when they match; a missing checkpoint is an error.
func (c *Checkpointer) VerifyCheckpoint(ctx context.Context, q db.DBTX, day time.Time) (bool, error) {
	cp, err := c.repo.GetCheckpoint(ctx, q, day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return false, err
	}
	if cp == nil {
		return false, &auditdomain.IntegrityError{TargetType: "checkpoint", TargetID: day.Format("2006-01-02"), Index: 0}
	}
	heads, err := c.repo.HeadsAsOf(ctx, q, cp.CreatedAt)
	if err != nil {
		return false, err
	}
	return HeadDigest(heads) == cp.HeadHash, nil
}
