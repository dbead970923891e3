package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/arashn/taskqueue/internal/archive"
	"github.com/arashn/taskqueue/internal/config"
	"github.com/arashn/taskqueue/internal/store/postgres"
)

// runArchive drives the housekeeping sweep SPEC_FULL.md §2.8 adds on top
// of spec.md: export terminal rows older than --retention to GCS via
// internal/archive.Archiver, then delete them from Postgres, repeating
// every --interval until shutdown. Requires --bucket, or
// TASKQUEUE_ARCHIVE_BUCKET together with TASKQUEUE_DB_URL (the TASKQUEUE_*
// env layer is only loaded when TASKQUEUE_DB_URL is set), since there is
// no durable archive target without one.
func runArchive(ctx context.Context, args []string) error {
	defaultDBURL, defaultBucket := "", ""
	if envCfg, _ := config.LoadWorkerConfig(); envCfg != nil {
		defaultDBURL = envCfg.Database.URL
		defaultBucket = envCfg.Archive.Bucket
	}

	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	dbURL := fs.String("db-url", defaultDBURL, "PostgreSQL connection URL (defaults to TASKQUEUE_DB_URL, falls back to DATABASE_URL)")
	bucket := fs.String("bucket", defaultBucket, "GCS bucket to archive terminal rows into")
	retention := fs.Float64("retention", 24*3600, "seconds a terminal row stays in Postgres before being swept")
	interval := fs.Float64("interval", 3600, "seconds between sweep passes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bucket == "" {
		return fmt.Errorf("archive bucket required: pass --bucket, or set TASKQUEUE_ARCHIVE_BUCKET together with TASKQUEUE_DB_URL")
	}

	url, err := resolveDBURL(*dbURL)
	if err != nil {
		return err
	}

	st, err := postgres.Open(ctx, postgres.Config{DSN: url})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	a, err := archive.New(ctx, *bucket)
	if err != nil {
		return fmt.Errorf("failed to initialize archiver: %w", err)
	}
	defer a.Close()

	sw := archive.NewSweeper(st, a,
		time.Duration(*retention*float64(time.Second)),
		time.Duration(*interval*float64(time.Second)))

	slog.InfoContext(ctx, "archive sweeper starting", "bucket", *bucket, "retention", *retention, "interval", *interval)
	err = sw.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
