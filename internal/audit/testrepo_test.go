package audit

import (
	"context"
	"sort"
	"time"

	"factory-data-platform/backend/internal/audit/domain"
	"factory-data-platform/backend/internal/db"
)

// fakeAuditRepo is an in-memory audit repository for tests. Records keep
// insertion order, which matches the (created_at, seq) ordering of the real
// repository under a test clock.
type fakeAuditRepo struct {
	records     []*domain.AuditRecord
	checkpoints map[time.Time]*domain.Checkpoint
	nextSeq     int64
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{checkpoints: make(map[time.Time]*domain.Checkpoint)}
}

func (r *fakeAuditRepo) Append(_ context.Context, _ db.DBTX, rec *domain.AuditRecord) error {
	r.nextSeq++
	rec.Seq = r.nextSeq
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeAuditRepo) Head(_ context.Context, _ db.DBTX, targetType, targetID string) (*domain.AuditRecord, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.TargetType == targetType && rec.TargetID == targetID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAuditRepo) ListLineage(_ context.Context, _ db.DBTX, targetType, targetID string) ([]*domain.AuditRecord, error) {
	var out []*domain.AuditRecord
	for _, rec := range r.records {
		if rec.TargetType == targetType && rec.TargetID == targetID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ListLineageForTenants(ctx context.Context, q db.DBTX, targetType, targetID string, tenantIDs []string) ([]*domain.AuditRecord, error) {
	if len(tenantIDs) == 0 {
		return nil, nil
	}
	allowed := make(map[string]struct{}, len(tenantIDs))
	for _, id := range tenantIDs {
		allowed[id] = struct{}{}
	}
	all, err := r.ListLineage(ctx, q, targetType, targetID)
	if err != nil {
		return nil, err
	}
	var out []*domain.AuditRecord
	for _, rec := range all {
		if _, ok := allowed[rec.TenantID]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) Heads(ctx context.Context, q db.DBTX) ([]*domain.LineageHead, error) {
	return r.HeadsAsOf(ctx, q, time.Now().Add(time.Hour))
}

func (r *fakeAuditRepo) HeadsAsOf(_ context.Context, _ db.DBTX, asOf time.Time) ([]*domain.LineageHead, error) {
	type key struct{ t, id string }
	latest := make(map[key]*domain.AuditRecord)
	for _, rec := range r.records {
		if rec.CreatedAt.After(asOf) {
			continue
		}
		latest[key{rec.TargetType, rec.TargetID}] = rec
	}
	out := make([]*domain.LineageHead, 0, len(latest))
	for k, rec := range latest {
		out = append(out, &domain.LineageHead{TargetType: k.t, TargetID: k.id, Hash: rec.CurrentHash})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetType != out[j].TargetType {
			return out[i].TargetType < out[j].TargetType
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

func (r *fakeAuditRepo) InsertCheckpoint(_ context.Context, _ db.DBTX, cp *domain.Checkpoint) error {
	if _, ok := r.checkpoints[cp.Day]; ok {
		return nil
	}
	c := *cp
	r.checkpoints[cp.Day] = &c
	return nil
}

func (r *fakeAuditRepo) GetCheckpoint(_ context.Context, _ db.DBTX, day time.Time) (*domain.Checkpoint, error) {
	cp, ok := r.checkpoints[day]
	if !ok {
		return nil, nil
	}
	c := *cp
	return &c, nil
}
