package audit

import (
	"context"
	"iter"

	"factory-data-platform/backend/internal/audit/canonical"
	auditdomain "factory-data-platform/backend/internal/audit/domain"
	auditrepo "factory-data-platform/backend/internal/audit/repository"
	"factory-data-platform/backend/internal/db"
)

// Step is one link check in a lineage replay. Index is 1-based.
// ExpectedPrevious is the freshly recomputed hash of the prior record and
// StoredPrevious is the hash the prior record stores; ActualPrevious is the
// previous_hash the record declares. The link holds only when all three
// agree: a recomputation mismatch means the prior record's content was
// altered, a stored mismatch means its hash column was rewritten.
type Step struct {
	Index            int
	OK               bool
	ExpectedPrevious *string
	StoredPrevious   *string
	ActualPrevious   *string
}

// Verifier replays lineages and validates hash linkage.
type Verifier struct {
	repo auditrepo.Repository
}

// NewVerifier returns a Verifier backed by the given repository.
func NewVerifier(repo auditrepo.Repository) *Verifier {
	return &Verifier{repo: repo}
}

// VerifyLineage replays one lineage in chain order and yields a Step per
// record. The sequence is lazy: consumers may stop at the first failed step to
// localize the break, or range fully for a complete report. The first record
// must declare no previous hash; every later record's declared previous hash
// must equal both a fresh recomputation over the prior record's declared
// previous hash and after-image, and the prior record's stored hash. Content
// tampering and stored-hash rewrites both surface at the following link.
func (v *Verifier) VerifyLineage(ctx context.Context, q db.DBTX, targetType, targetID string) (iter.Seq[Step], error) {
	records, err := v.repo.ListLineage(ctx, q, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return func(yield func(Step) bool) {
		var expected, stored *string
		for i, rec := range records {
			step := Step{
				Index:            i + 1,
				ExpectedPrevious: expected,
				StoredPrevious:   stored,
				ActualPrevious:   rec.PreviousHash,
			}
			step.OK = hashPtrEqual(rec.PreviousHash, expected) && hashPtrEqual(rec.PreviousHash, stored)
			if !yield(step) {
				return
			}
			recomputed := recompute(rec)
			expected = &recomputed
			current := rec.CurrentHash
			stored = &current
		}
	}, nil
}

// CheckLineage scans a lineage fully and returns an IntegrityError for the
// first broken link, or nil if the chain is intact. Integrity violations are
// fatal and must reach an operator; callers never repair them automatically.
func (v *Verifier) CheckLineage(ctx context.Context, q db.DBTX, targetType, targetID string) error {
	seq, err := v.VerifyLineage(ctx, q, targetType, targetID)
	if err != nil {
		return err
	}
	for step := range seq {
		if !step.OK {
			expected := step.ExpectedPrevious
			if hashPtrEqual(step.ActualPrevious, expected) {
				// Recomputation agrees with the declared link; the prior
				// record's stored hash is the side that was rewritten.
				expected = step.StoredPrevious
			}
			return &auditdomain.IntegrityError{
				TargetType: targetType,
				TargetID:   targetID,
				Index:      step.Index,
				Expected:   expected,
				Actual:     step.ActualPrevious,
			}
		}
	}
	return nil
}

// recompute rebuilds a record's hash from its declared previous hash and
// stored after-image. Differs from the stored hash when content was altered.
func recompute(rec *auditdomain.AuditRecord) string {
	canonicalBytes, err := canonical.Canonicalize(rec.AfterImage)
	if err != nil {
		// An undecodable after-image can never hash to a valid link; feed the
		// raw bytes so the next step reports the break.
		canonicalBytes = rec.AfterImage
	}
	return ComputeHash(rec.PreviousHash, canonicalBytes)
}

func hashPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
