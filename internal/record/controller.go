// Package record implements the optimistic concurrency controller: every
// guarded write compares the caller's expected version against the stored one
// under a row lock and turns stale writes into a typed conflict instead of a
// silent overwrite.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"factory-data-platform/backend/internal/db"
	"factory-data-platform/backend/internal/record/domain"
	"factory-data-platform/backend/internal/record/repository"
)

// ErrNotFound is returned when the target record does not exist.
var ErrNotFound = errors.New("record: not found")

// Controller applies compare-and-swap mutations to records. It assumes the
// authorization guard already accepted the operation and that the caller runs
// it inside the transaction that also appends the audit record.
type Controller struct {
	repo repository.Repository
	now  func() time.Time
}

// NewController returns a Controller backed by the given repository.
func NewController(repo repository.Repository) *Controller {
	return &Controller{repo: repo, now: time.Now}
}

// WithClock overrides the clock for testing.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Create inserts a new record at version 1.
func (c *Controller) Create(ctx context.Context, tx db.DBTX, rec *domain.Record) error {
	now := c.now().UTC()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Payload == nil {
		rec.Payload = json.RawMessage("{}")
	}
	return c.repo.Insert(ctx, tx, rec)
}

// Apply performs the match-and-increment for one guarded update. The row is
// locked before the version read and stays locked until the enclosing
// transaction ends, so two racers with the same expected version resolve to
// exactly one success and one ConflictError.
//
// Returns the before and after images for the audit writer. On version
// mismatch it returns ConflictError carrying the current version and performs
// no mutation.
func (c *Controller) Apply(ctx context.Context, tx db.DBTX, ref domain.Ref, expectedVersion int64, m *domain.Mutation) (before, after *domain.Record, err error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	rec, err := c.repo.GetByRefForUpdate(ctx, tx, ref)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrNotFound
	}
	if rec.Version != expectedVersion {
		return nil, nil, &domain.ConflictError{Ref: ref, CurrentVersion: rec.Version}
	}

	before = cloneRecord(rec)

	if len(m.Fields) > 0 {
		merged, err := mergePayload(rec.Payload, m.Fields)
		if err != nil {
			return nil, nil, &domain.ValidationError{Reason: err.Error()}
		}
		rec.Payload = merged
	}
	if m.TenantID != nil {
		rec.TenantID = *m.TenantID
	}
	if m.Active != nil {
		rec.Active = *m.Active
	}
	if m.Finalize != nil {
		rec.Finalized = *m.Finalize
	}
	rec.Version = expectedVersion + 1
	rec.UpdatedAt = c.now().UTC()

	if err := c.repo.Update(ctx, tx, rec); err != nil {
		return nil, nil, err
	}
	return before, rec, nil
}

// Delete removes the record row under the same version check and row lock as
// Apply. Callers must have passed the delete-exception policy first.
func (c *Controller) Delete(ctx context.Context, tx db.DBTX, ref domain.Ref, expectedVersion int64) (before *domain.Record, err error) {
	rec, err := c.repo.GetByRefForUpdate(ctx, tx, ref)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Version != expectedVersion {
		return nil, &domain.ConflictError{Ref: ref, CurrentVersion: rec.Version}
	}
	if err := c.repo.Delete(ctx, tx, ref); err != nil {
		return nil, err
	}
	return rec, nil
}

// Lock reads the record under FOR UPDATE so the caller can authorize against
// the stored owner before the version check. The lock is held until the
// enclosing transaction ends; Apply and Delete re-read the same locked row.
// Returns (nil, nil) when the record does not exist.
func (c *Controller) Lock(ctx context.Context, tx db.DBTX, ref domain.Ref) (*domain.Record, error) {
	return c.repo.GetByRefForUpdate(ctx, tx, ref)
}

// Get reads the record without locking. Used for pre-mutation scope checks.
func (c *Controller) Get(ctx context.Context, q db.DBTX, ref domain.Ref) (*domain.Record, error) {
	return c.repo.GetByRef(ctx, q, ref)
}

func cloneRecord(rec *domain.Record) *domain.Record {
	cp := *rec
	cp.Payload = append(json.RawMessage(nil), rec.Payload...)
	return &cp
}

func mergePayload(payload json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return json.Marshal(doc)
}
