// Package mutate is the contract surface business workflows call: resolve
// scope, apply a guarded mutation, and read an audit trail. It composes the
// authorization guard, the concurrency controller, and the audit chain writer
// in a fixed order inside one database transaction, with no storage-engine
// triggers.
package mutate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"factory-data-platform/backend/internal/audit"
	auditdomain "factory-data-platform/backend/internal/audit/domain"
	"factory-data-platform/backend/internal/authz"
	"factory-data-platform/backend/internal/events"
	eventsdomain "factory-data-platform/backend/internal/events/domain"
	principaldomain "factory-data-platform/backend/internal/principal/domain"
	principalrepo "factory-data-platform/backend/internal/principal/repository"
	"factory-data-platform/backend/internal/record"
	recorddomain "factory-data-platform/backend/internal/record/domain"
	"factory-data-platform/backend/internal/scope"
)

// ErrNotFound is returned when the mutation target does not exist.
var ErrNotFound = record.ErrNotFound

// Request describes one guarded mutation.
type Request struct {
	Ref recorddomain.Ref
	// TargetTenant is the owning tenant being assigned on create; ignored for
	// update and delete, where ownership comes from the stored record.
	TargetTenant    string
	Action          recorddomain.Action
	ExpectedVersion int64
	// Mutation holds field changes for update; nil for create and delete.
	Mutation *recorddomain.Mutation
	// Payload is the initial document on create.
	Payload json.RawMessage
}

// Result reports a committed mutation.
type Result struct {
	NewVersion    int64
	AuditRecordID string
}

// Service wires the integrity pipeline. All methods take the principal as an
// explicit value; nothing is read from ambient session state.
type Service struct {
	db           *sql.DB
	resolver     *scope.Resolver
	guard        *authz.Guard
	records      *record.Controller
	writer       *audit.Writer
	verifier     *audit.Verifier
	checkpointer *audit.Checkpointer
	principals   principalrepo.Repository
	emitter      events.Emitter

	tracer     trace.Tracer
	conflicts  metric.Int64Counter
	violations metric.Int64Counter
}

// NewService returns the integrity-layer service. emitter may be nil; then
// security events are only logged.
func NewService(
	db *sql.DB,
	resolver *scope.Resolver,
	guard *authz.Guard,
	records *record.Controller,
	writer *audit.Writer,
	verifier *audit.Verifier,
	checkpointer *audit.Checkpointer,
	principals principalrepo.Repository,
	emitter events.Emitter,
) *Service {
	s := &Service{
		db:           db,
		resolver:     resolver,
		guard:        guard,
		records:      records,
		writer:       writer,
		verifier:     verifier,
		checkpointer: checkpointer,
		principals:   principals,
		emitter:      emitter,
		tracer:       otel.Tracer("fdp/mutate"),
	}
	meter := otel.Meter("fdp/mutate")
	var err error
	if s.conflicts, err = meter.Int64Counter("fdp.mutate.conflicts"); err != nil {
		log.Printf("mutate: conflict counter: %v", err)
	}
	if s.violations, err = meter.Int64Counter("fdp.mutate.scope_violations"); err != nil {
		log.Printf("mutate: violation counter: %v", err)
	}
	return s
}

// ResolveScope computes the accessible tenant set for the principal.
func (s *Service) ResolveScope(ctx context.Context, p *principaldomain.Principal) (scope.Decision, error) {
	return s.resolver.Resolve(ctx, p)
}

// SelectTenant validates and persists the principal's working-tenant selection.
func (s *Service) SelectTenant(ctx context.Context, p *principaldomain.Principal, tenantID string) error {
	if err := s.resolver.SelectTenant(ctx, p, tenantID); err != nil {
		return err
	}
	return s.principals.SetSelectedTenant(ctx, p.ID, &tenantID)
}

// DeselectTenant clears the principal's tenant selection. Global roles only.
func (s *Service) DeselectTenant(ctx context.Context, p *principaldomain.Principal) error {
	if err := s.resolver.DeselectTenant(p); err != nil {
		return err
	}
	return s.principals.SetSelectedTenant(ctx, p.ID, nil)
}

// GuardedMutate applies one mutation: authorization guard, then version
// compare-and-swap, then audit append, all inside a single transaction. A
// commit failure rolls back every part and is surfaced as a retryable error.
func (s *Service) GuardedMutate(ctx context.Context, p *principaldomain.Principal, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "GuardedMutate", trace.WithAttributes(
		attribute.String("target.type", req.Ref.Type),
		attribute.String("action", string(req.Action)),
	))
	defer span.End()

	// Malformed mutations are rejected before any version check, so they
	// produce no version bump and no audit record.
	if req.Action == recorddomain.ActionUpdate {
		if err := req.Mutation.Validate(); err != nil {
			return nil, err
		}
	}

	decision, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := s.mutateInTx(ctx, tx, p, decision, req)
	if err != nil {
		s.observeFailure(ctx, p, req, err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		// A serialization or lock failure here left no partial state; the
		// caller retries with a freshly read version.
		return nil, fmt.Errorf("mutate: commit failed (retryable): %w", err)
	}
	return res, nil
}

func (s *Service) mutateInTx(ctx context.Context, tx *sql.Tx, p *principaldomain.Principal, d scope.Decision, req Request) (*Result, error) {
	switch req.Action {
	case recorddomain.ActionCreate:
		return s.create(ctx, tx, p, d, req)
	case recorddomain.ActionUpdate:
		return s.update(ctx, tx, p, d, req)
	case recorddomain.ActionDelete:
		return s.delete(ctx, tx, p, d, req)
	default:
		return nil, &recorddomain.ValidationError{Reason: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

func (s *Service) create(ctx context.Context, tx *sql.Tx, p *principaldomain.Principal, d scope.Decision, req Request) (*Result, error) {
	if req.TargetTenant == "" {
		return nil, &recorddomain.ValidationError{Reason: "create requires a target tenant"}
	}
	if err := s.guard.Authorize(d, authz.OpInsert, req.TargetTenant); err != nil {
		return nil, err
	}
	// A scoped decision only admits tenants that exist and are active; a
	// global decision admits any ID, so creates verify the owner here rather
	// than surface a foreign key violation from the insert.
	if d.Global {
		if err := s.resolver.EnsureActive(ctx, req.TargetTenant); err != nil {
			if errors.Is(err, scope.ErrTenantInactive) {
				return nil, &recorddomain.ValidationError{Reason: fmt.Sprintf("tenant %q does not exist or is inactive", req.TargetTenant)}
			}
			return nil, err
		}
	}
	rec := &recorddomain.Record{
		ID:         req.Ref.ID,
		TenantID:   req.TargetTenant,
		RecordType: req.Ref.Type,
		Payload:    req.Payload,
		Active:     true,
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if err := s.records.Create(ctx, tx, rec); err != nil {
		return nil, err
	}
	auditRec, err := s.writer.Append(ctx, tx, audit.AppendParams{
		TenantID:   rec.TenantID,
		TargetType: rec.RecordType,
		TargetID:   rec.ID,
		Action:     string(recorddomain.ActionCreate),
		ActorID:    p.ID,
		Before:     nil,
		After:      rec.Payload,
	})
	if err != nil {
		return nil, err
	}
	return &Result{NewVersion: rec.Version, AuditRecordID: auditRec.ID}, nil
}

func (s *Service) update(ctx context.Context, tx *sql.Tx, p *principaldomain.Principal, d scope.Decision, req Request) (*Result, error) {
	// Lock first, authorize against the stored owner before any version
	// comparison: a principal outside the owning tenant's scope must get an
	// access denial, never conflict details.
	current, err := s.records.Lock(ctx, tx, req.Ref)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if req.Mutation.TenantID != nil {
		if err := s.guard.AuthorizeTenantChange(d, current.TenantID, *req.Mutation.TenantID); err != nil {
			return nil, err
		}
	} else if err := s.guard.Authorize(d, authz.OpUpdate, current.TenantID); err != nil {
		return nil, err
	}

	before, after, err := s.records.Apply(ctx, tx, req.Ref, req.ExpectedVersion, req.Mutation)
	if err != nil {
		return nil, err
	}
	auditRec, err := s.writer.Append(ctx, tx, audit.AppendParams{
		TenantID:   after.TenantID,
		TargetType: after.RecordType,
		TargetID:   after.ID,
		Action:     string(recorddomain.ActionUpdate),
		ActorID:    p.ID,
		Before:     snapshot(before),
		After:      snapshot(after),
	})
	if err != nil {
		return nil, err
	}
	return &Result{NewVersion: after.Version, AuditRecordID: auditRec.ID}, nil
}

func (s *Service) delete(ctx context.Context, tx *sql.Tx, p *principaldomain.Principal, d scope.Decision, req Request) (*Result, error) {
	current, err := s.records.Lock(ctx, tx, req.Ref)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if err := s.guard.AuthorizeDelete(ctx, d, current); err != nil {
		return nil, err
	}
	before, err := s.records.Delete(ctx, tx, req.Ref, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	auditRec, err := s.writer.Append(ctx, tx, audit.AppendParams{
		TenantID:   before.TenantID,
		TargetType: before.RecordType,
		TargetID:   before.ID,
		Action:     string(recorddomain.ActionDelete),
		ActorID:    p.ID,
		Before:     snapshot(before),
	})
	if err != nil {
		return nil, err
	}
	return &Result{NewVersion: before.Version, AuditRecordID: auditRec.ID}, nil
}

// ReadAuditTrail returns the lineage's records filtered by the principal's
// accessible tenants. A lineage owned by a tenant outside the principal's
// scope yields an empty sequence, not an error, so reads never confirm the
// existence of data the caller cannot see.
func (s *Service) ReadAuditTrail(ctx context.Context, p *principaldomain.Principal, targetType, targetID string) (iter.Seq[*auditdomain.AuditRecord], error) {
	decision, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	var records []*auditdomain.AuditRecord
	if decision.Global {
		records, err = s.writer.Repo().ListLineage(ctx, s.db, targetType, targetID)
	} else {
		records, err = s.writer.Repo().ListLineageForTenants(ctx, s.db, targetType, targetID, decision.TenantIDs())
	}
	if err != nil {
		return nil, err
	}
	return func(yield func(*auditdomain.AuditRecord) bool) {
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	}, nil
}

// VerifyLineage replays one lineage's hash chain. Restricted to global
// principals; a detected break is published to the operator channel before it
// is returned.
func (s *Service) VerifyLineage(ctx context.Context, p *principaldomain.Principal, targetType, targetID string) (iter.Seq[audit.Step], error) {
	decision, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireGlobal(decision); err != nil {
		return nil, err
	}
	return s.verifier.VerifyLineage(ctx, s.db, targetType, targetID)
}

// CheckLineage scans the lineage and reports the first break as an
// IntegrityError, alerting the operator channel. Never repairs.
func (s *Service) CheckLineage(ctx context.Context, p *principaldomain.Principal, targetType, targetID string) error {
	decision, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if err := authz.RequireGlobal(decision); err != nil {
		return err
	}
	if err := s.verifier.CheckLineage(ctx, s.db, targetType, targetID); err != nil {
		var integrity *auditdomain.IntegrityError
		if errors.As(err, &integrity) {
			log.Printf("mutate: %v", integrity)
			events.EmitAsync(s.emitter, ctx, &eventsdomain.SecurityEvent{
				EventType:  eventsdomain.EventChainIntegrityViolation,
				TargetType: targetType,
				TargetID:   targetID,
				Detail:     integrity.Error(),
				CreatedAt:  time.Now().UTC(),
			})
		}
		return err
	}
	return nil
}

// MakeCheckpoint folds all chain heads into the daily checkpoint. The
// decision must be global; the external scheduler runs with an explicit
// global service principal, never an ungated connection.
func (s *Service) MakeCheckpoint(ctx context.Context, d scope.Decision) (*auditdomain.Checkpoint, error) {
	if err := authz.RequireGlobal(d); err != nil {
		return nil, err
	}
	return s.checkpointer.MakeCheckpoint(ctx, s.db)
}

// VerifyCheckpoint recomputes a day's checkpoint digest. Global only.
func (s *Service) VerifyCheckpoint(ctx context.Context, d scope.Decision, day time.Time) (bool, error) {
	if err := authz.RequireGlobal(d); err != nil {
		return false, err
	}
	return s.checkpointer.VerifyCheckpoint(ctx, s.db, day)
}

// observeFailure records counters and security events for rejected mutations.
func (s *Service) observeFailure(ctx context.Context, p *principaldomain.Principal, req Request, err error) {
	var conflict *recorddomain.ConflictError
	switch {
	case errors.Is(err, authz.ErrScopeViolation):
		if s.violations != nil {
			s.violations.Add(ctx, 1)
		}
		log.Printf("mutate: scope violation by %s on %s", p.ID, req.Ref)
		events.EmitAsync(s.emitter, ctx, &eventsdomain.SecurityEvent{
			EventType:   eventsdomain.EventScopeViolation,
			PrincipalID: p.ID,
			TargetType:  req.Ref.Type,
			TargetID:    req.Ref.ID,
			Operation:   string(req.Action),
			CreatedAt:   time.Now().UTC(),
		})
	case errors.As(err, &conflict):
		if s.conflicts != nil {
			s.conflicts.Add(ctx, 1)
		}
	}
}

func snapshot(rec *recorddomain.Record) json.RawMessage {
	if rec == nil {
		return nil
	}
	doc := map[string]any{
		"tenant_id": rec.TenantID,
		"active":    rec.Active,
		"finalized": rec.Finalized,
		"version":   rec.Version,
		"payload":   json.RawMessage(rec.Payload),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return rec.Payload
	}
	return b
}
