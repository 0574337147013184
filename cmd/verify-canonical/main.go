package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"optimasol-schema/internal/config"
	"optimasol-schema/internal/loader"
	"optimasol-schema/internal/logger"
	"optimasol-schema/internal/repository"
	"optimasol-schema/internal/schema"
	"optimasol-schema/internal/service"
	"optimasol-schema/internal/store"
)

// verify-canonical checks that the target Postgres database matches the
// canonical schema reconciled from the two dumps: every entity present,
// every field present with the right nullability, owner foreign keys
// carrying ON DELETE CASCADE.
func main() {
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "verify-canonical")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Cannot open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	l := loader.New(zlog, cfg.Dumps.FetchTimeout)
	svc := service.NewReconcileService(l, store.NewMemoryKV(), 0, zlog)

	ctx := context.Background()
	rep, err := svc.Run(ctx, service.RunRequest{
		PrimaryRef:       cfg.Dumps.Primary,
		SecondaryRef:     cfg.Dumps.Secondary,
		PrimaryDialect:   schema.Dialect(cfg.Dumps.PrimaryDialect),
		SecondaryDialect: schema.Dialect(cfg.Dumps.SecondaryDialect),
	})
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	repo := repository.NewPostgresSchemaRepository(db, zlog)
	findings, err := repo.VerifyCanonical(ctx, rep.Canonical)
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}

	if len(findings) == 0 {
		fmt.Printf("✅ Database matches the canonical schema (%d entities checked)\n", len(rep.Canonical.Entities))
		return
	}
	for _, f := range findings {
		if f.Field != "" {
			fmt.Printf("❌ %s.%s: %s\n", f.Entity, f.Field, f.Detail)
		} else {
			fmt.Printf("❌ %s: %s\n", f.Entity, f.Detail)
		}
	}
	fmt.Printf("\n%d finding(s)\n", len(findings))
	os.Exit(1)
}
