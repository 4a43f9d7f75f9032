// checkpoint creates (or verifies) the daily audit checkpoint. Run once per
// day from an external scheduler; repeated runs on the same day are no-ops.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	auditpkg "factory-data-platform/backend/internal/audit"
	auditrepo "factory-data-platform/backend/internal/audit/repository"
	"factory-data-platform/backend/internal/config"
	"factory-data-platform/backend/internal/db"
)

func main() {
	verifyDay := flag.String("verify", "", "Verify the checkpoint for the given day (YYYY-MM-DD) instead of creating today's")
	flag.Parse()

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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	checkpointer := auditpkg.NewCheckpointer(auditrepo.NewPostgresRepository())

	if *verifyDay != "" {
		day, err := time.Parse("2006-01-02", *verifyDay)
		if err != nil {
			log.Fatalf("invalid -verify day: %v", err)
		}
		ok, err := checkpointer.VerifyCheckpoint(ctx, database, day)
		if err != nil {
			log.Fatalf("verify: %v", err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "checkpoint %s: digest mismatch; audit heads were altered after checkpointing\n", *verifyDay)
			os.Exit(1)
		}
		fmt.Printf("checkpoint %s: ok\n", *verifyDay)
		return
	}

	cp, err := checkpointer.MakeCheckpoint(ctx, database)
	if err != nil {
		log.Fatalf("checkpoint: %v", err)
	}
	fmt.Printf("checkpoint %s: %d lineages, digest %s\n", cp.Day.Format("2006-01-02"), cp.LineageCount, cp.HeadHash)
}
