package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/arashn/taskqueue/internal/queue"
	"github.com/arashn/taskqueue/internal/store/postgres"
)

// runRequeue implements the dead-letter-review supplement SPEC_FULL.md §4.6
// adds on top of spec.md: resubmitting a terminal failed row as a fresh
// task, grounded in the teacher's RetryDeadLetterJob.
func runRequeue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("requeue", flag.ExitOnError)
	dbURL := fs.String("db-url", "", "PostgreSQL connection URL (falls back to DATABASE_URL)")
	id := fs.String("id", "", "terminal failed task id to requeue")
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

	q := queue.New(st, queue.DefaultDefaults())
	if err := registerHandlers(q); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	newID, err := q.RequeueTerminal(ctx, *id)
	if err != nil {
		return fmt.Errorf("failed to requeue task: %w", err)
	}
	fmt.Println(newID)
	return nil
}
