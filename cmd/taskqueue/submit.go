package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/arashn/taskqueue/internal/queue"
	"github.com/arashn/taskqueue/internal/store/postgres"
)

// argFlags collects repeated --arg k=v flags into kwargs, coercing numeric
// and boolean literals the way a shell-facing CLI conventionally does.
type argFlags map[string]any

func (a argFlags) String() string { return "" }

func (a argFlags) Set(raw string) error {
	k, v, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("--arg must be k=v, got %q", raw)
	}
	a[k] = coerceArg(v)
	return nil
}

func coerceArg(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func runSubmitTask(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: taskqueue submit-task NAME [--arg k=v]...")
	}
	name := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("submit-task", flag.ExitOnError)
	dbURL := fs.String("db-url", "", "PostgreSQL connection URL (falls back to DATABASE_URL)")
	delay := fs.Float64("delay", 0, "delay_seconds before the task becomes eligible")
	priority := fs.Int("priority", 0, "claim priority, higher wins")
	kwargs := make(argFlags)
	fs.Var(kwargs, "arg", "k=v task argument, repeatable")
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

	q := queue.New(st, queue.DefaultDefaults())
	if err := registerHandlers(q); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	id, err := q.Submit(ctx, name, kwargs, queue.SubmitParams{
		DelaySeconds: *delay,
		Priority:     *priority,
	})
	if err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	fmt.Println(id)
	return nil
}
