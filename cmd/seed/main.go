// seed inserts development sample data for local testing: tenants, principals,
// and a few records written through the full guarded pipeline so the audit
// chains have realistic lineage. Idempotent: skips if the first tenant exists.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	auditpkg "factory-data-platform/backend/internal/audit"
	auditrepo "factory-data-platform/backend/internal/audit/repository"
	"factory-data-platform/backend/internal/authz"
	"factory-data-platform/backend/internal/config"
	"factory-data-platform/backend/internal/db"
	"factory-data-platform/backend/internal/mutate"
	"factory-data-platform/backend/internal/policy/engine"
	principaldomain "factory-data-platform/backend/internal/principal/domain"
	principalrepo "factory-data-platform/backend/internal/principal/repository"
	"factory-data-platform/backend/internal/record"
	recorddomain "factory-data-platform/backend/internal/record/domain"
	recordrepo "factory-data-platform/backend/internal/record/repository"
	"factory-data-platform/backend/internal/scope"
	tenantdomain "factory-data-platform/backend/internal/tenant/domain"
	tenantrepo "factory-data-platform/backend/internal/tenant/repository"
)

const (
	tenantAuroraID   = "tenant-aurora-001"
	tenantBorealisID = "tenant-borealis-001"
	tenantCinderID   = "tenant-cinder-001"
	adminID          = "principal-admin-001"
	plannerID        = "principal-planner-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tenants := tenantrepo.NewPostgresRepository(database)
	if existing, err := tenants.GetByID(ctx, tenantAuroraID); err != nil {
		log.Fatalf("seed: %v", err)
	} else if existing != nil {
		fmt.Println("seed: data already present, skipping")
		return
	}

	for _, t := range []*tenantdomain.Tenant{
		{ID: tenantAuroraID, Code: "aurora", Name: "Aurora Plant", Active: true},
		{ID: tenantBorealisID, Code: "borealis", Name: "Borealis Plant", Active: true},
		{ID: tenantCinderID, Code: "cinder", Name: "Cinder Plant (decommissioned)", Active: false},
	} {
		if err := tenants.Create(ctx, t); err != nil {
			log.Fatalf("seed tenant %s: %v", t.Code, err)
		}
	}

	principals := principalrepo.NewPostgresRepository(database)
	admin := &principaldomain.Principal{
		ID:          adminID,
		DisplayName: "Dev Admin",
		Role:        principaldomain.RoleAdmin,
	}
	planner := &principaldomain.Principal{
		ID:          plannerID,
		DisplayName: "Dev Planner",
		Role:        principaldomain.RolePlanner,
		TenantIDs:   []string{tenantAuroraID},
	}
	for _, p := range []*principaldomain.Principal{admin, planner} {
		if err := principals.Create(ctx, p); err != nil {
			log.Fatalf("seed principal %s: %v", p.ID, err)
		}
	}

	deletePolicy, err := engine.NewOPAEvaluator()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	audits := auditrepo.NewPostgresRepository()
	service := mutate.NewService(
		database,
		scope.NewResolver(tenants),
		authz.NewGuard(deletePolicy),
		record.NewController(recordrepo.NewPostgresRepository()),
		auditpkg.NewWriter(audits),
		auditpkg.NewVerifier(audits),
		auditpkg.NewCheckpointer(audits),
		principals,
		nil,
	)

	// Records go through the guarded pipeline so their audit chains are real.
	workOrderRef := recorddomain.Ref{Type: "work_order", ID: "wo-0001"}
	res, err := service.GuardedMutate(ctx, admin, mutate.Request{
		Ref:          workOrderRef,
		TargetTenant: tenantAuroraID,
		Action:       recorddomain.ActionCreate,
		Payload:      json.RawMessage(`{"item":"gearbox housing","quantity":40,"status":"planned"}`),
	})
	if err != nil {
		log.Fatalf("seed work order: %v", err)
	}
	res, err = service.GuardedMutate(ctx, planner, mutate.Request{
		Ref:             workOrderRef,
		Action:          recorddomain.ActionUpdate,
		ExpectedVersion: res.NewVersion,
		Mutation:        &recorddomain.Mutation{Fields: map[string]any{"status": "released"}},
	})
	if err != nil {
		log.Fatalf("seed work order update: %v", err)
	}

	if _, err := service.GuardedMutate(ctx, admin, mutate.Request{
		Ref:          recorddomain.Ref{Type: "dispatch_note_draft", ID: "dn-0001"},
		TargetTenant: tenantBorealisID,
		Action:       recorddomain.ActionCreate,
		Payload:      json.RawMessage(`{"carrier":"northline","pallets":3}`),
	}); err != nil {
		log.Fatalf("seed dispatch note: %v", err)
	}

	fmt.Println("seed: done")
}
