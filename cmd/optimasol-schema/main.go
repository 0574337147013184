package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"optimasol-schema/internal/config"
	"optimasol-schema/internal/loader"
	"optimasol-schema/internal/logger"
	"optimasol-schema/internal/report"
	"optimasol-schema/internal/schema"
	"optimasol-schema/internal/service"
	"optimasol-schema/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "optimasol-schema")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var kv store.KV = store.NewMemoryKV()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	}

	l := loader.New(log, cfg.Dumps.FetchTimeout)
	svc := service.NewReconcileService(l, kv, cfg.Redis.TTL, log)

	rep, err := svc.Run(context.Background(), service.RunRequest{
		PrimaryRef:       cfg.Dumps.Primary,
		SecondaryRef:     cfg.Dumps.Secondary,
		PrimaryDialect:   schema.Dialect(cfg.Dumps.PrimaryDialect),
		SecondaryDialect: schema.Dialect(cfg.Dumps.SecondaryDialect),
	})
	if err != nil {
		log.Fatal("reconciliation failed", zap.Error(err))
	}

	if err := writeReports(cfg, rep); err != nil {
		log.Fatal("failed to write reports", zap.Error(err))
	}

	if rep.HasFindings() {
		fmt.Printf("\n❌ Reconciliation finished with %d conflict(s) and %d violation(s)\n",
			len(rep.Conflicts), len(rep.Violations))
		os.Exit(1)
	}
	fmt.Println("\n✅ Reconciliation finished without conflicts or violations")
}

func writeReports(cfg *config.Config, rep *report.Report) error {
	for _, format := range cfg.Report.Formats {
		switch format {
		case "text":
			fmt.Print(rep.RenderText())
		case "json":
			data, err := rep.JSON()
			if err != nil {
				return err
			}
			if err := writeFile(cfg.Report.Dir, rep.RunID+".json", data); err != nil {
				return err
			}
		case "excel":
			data, err := rep.Excel()
			if err != nil {
				return err
			}
			if err := writeFile(cfg.Report.Dir, rep.RunID+".xlsx", data); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown report format: %s", format)
		}
	}
	return nil
}

func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}
