package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"optimasol-schema/internal/config"
	"optimasol-schema/internal/fixtures"
	"optimasol-schema/internal/loader"
	"optimasol-schema/internal/logger"
	"optimasol-schema/internal/repository"
	"optimasol-schema/internal/schema"
	"optimasol-schema/internal/service"
	"optimasol-schema/internal/store"
)

// apply-canonical reconciles the two dumps and applies the resulting
// canonical schema to the target Postgres database, then seeds the
// baseline data (admin client, default prices, HP slots).
func main() {
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "apply-canonical")
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
	if len(rep.Conflicts) > 0 {
		for _, c := range rep.Conflicts {
			fmt.Printf("❌ conflict: %s\n", c.Error())
		}
		log.Fatalf("Refusing to apply a canonical schema with %d unresolved conflict(s)", len(rep.Conflicts))
	}

	repo := repository.NewPostgresSchemaRepository(db, zlog)
	if err := repo.ApplyCanonical(ctx, rep.Canonical); err != nil {
		log.Fatalf("Apply failed: %v", err)
	}
	fmt.Printf("✅ Applied %d canonical entities\n", len(rep.Canonical.Entities))

	if err := repo.SeedFixtures(ctx, fixtures.Default()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	fmt.Println("✅ Baseline fixtures seeded")
}
