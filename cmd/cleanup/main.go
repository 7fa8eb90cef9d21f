package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warungpos/api/internal/config"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/service"
	"github.com/warungpos/api/internal/tenant"
)

// Retention cleanup, meant to run from cron. Deletes closed orders
// older than the retention window in bounded batches and prints a JSON
// summary. Interrupted runs are safe to restart.
func main() {
	days := flag.Int("days", 90, "retention window in days")
	batchSize := flag.Int("batch-size", 500, "orders deleted per transaction")
	maxBatches := flag.Int("max-batches", 20, "maximum batches for one run")
	dryRun := flag.Bool("dry-run", false, "count candidates without deleting")
	statuses := flag.String("statuses", "", "comma-separated order statuses (default: terminal statuses)")
	flag.Parse()

	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	opts := service.CleanupOptions{
		Days:       *days,
		BatchSize:  int32(*batchSize),
		MaxBatches: *maxBatches,
		DryRun:     *dryRun,
	}
	if *statuses != "" {
		for _, s := range strings.Split(*statuses, ",") {
			opts.Statuses = append(opts.Statuses, strings.TrimSpace(s))
		}
	}

	svc := service.NewRetentionService(
		func(q *database.Queries) service.RetentionStore { return q },
		cfg.CleanupWarnThreshold,
	)

	binder := tenant.NewBinder(pool)
	var summary *service.CleanupSummary

	// The cleanup crosses branches, so it runs as the system tenant:
	// no branch bound, admin flag set.
	err = binder.Activate(context.Background(), tenant.System(), func(ctx context.Context) error {
		var err error
		summary, err = svc.Cleanup(ctx, opts)
		return err
	})
	if err != nil {
		log.Fatalf("cleanup: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Fatalf("encode summary: %v", err)
	}
}
