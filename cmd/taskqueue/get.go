package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
	"github.com/arashn/taskqueue/internal/store/postgres"
)

func runGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	dbURL := fs.String("db-url", "", "PostgreSQL connection URL (falls back to DATABASE_URL)")
	id := fs.String("id", "", "task id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
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

	task, err := st.Get(ctx, *id)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	return printJSON(task)
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbURL := fs.String("db-url", "", "PostgreSQL connection URL (falls back to DATABASE_URL)")
	state := fs.String("state", "", "filter by state: pending|running|completed|failed")
	name := fs.String("name", "", "filter by task name")
	limit := fs.Int("limit", 50, "maximum rows returned")
	if err := fs.Parse(args); err != nil {
		return err
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

	var filters store.Filters
	if *state != "" {
		s := domain.State(*state)
		filters.State = &s
	}
	if *name != "" {
		filters.Name = name
	}

	tasks, err := st.List(ctx, filters, *limit)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	return printJSON(tasks)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
