package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/arashn/taskqueue/internal/store/postgres"
)

// runInit ensures the tasks schema exists. Migrations are idempotent
// (goose tracks applied versions), so --force only changes whether init
// refuses to run against a database that already has the table — it does
// not change what gets applied.
func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbURL := fs.String("db-url", "", "PostgreSQL connection URL (falls back to DATABASE_URL)")
	force := fs.Bool("force", false, "proceed even if the tasks table already exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	url, err := resolveDBURL(*dbURL)
	if err != nil {
		return err
	}

	if !*force {
		if exists, err := postgres.TasksTableExists(ctx, url); err != nil {
			return fmt.Errorf("failed to check existing schema: %w", err)
		} else if exists {
			return fmt.Errorf("tasks table already exists; pass --force to re-run migrations anyway")
		}
	}

	store, err := postgres.Open(ctx, postgres.Config{DSN: url})
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	defer store.Close()

	fmt.Fprintln(os.Stdout, "schema initialized")
	return nil
}
