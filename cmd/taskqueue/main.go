// Command taskqueue is the CLI surface of spec.md §6: init, worker,
// submit-task, plus the dead-letter-review and dashboard subcommands
// SPEC_FULL.md §6 adds. Dispatches on os.Args[1] with the standard library
// flag package, the same style the teacher's cmd/apikey uses for a single
// command generalized here to several — the teacher never imports a
// flag-parsing library beyond stdlib, so none is introduced here.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(ctx, os.Args[2:])
	case "worker":
		err = runWorker(ctx, os.Args[2:])
	case "submit-task":
		err = runSubmitTask(ctx, os.Args[2:])
	case "get":
		err = runGet(ctx, os.Args[2:])
	case "list":
		err = runList(ctx, os.Args[2:])
	case "requeue":
		err = runRequeue(ctx, os.Args[2:])
	case "dashboard":
		err = runDashboard(ctx, os.Args[2:])
	case "archive":
		err = runArchive(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("taskqueue %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `taskqueue — durable Postgres-backed task queue

Usage:
  taskqueue init         [--db-url URL] [--force]
  taskqueue worker       --db-url URL [--concurrency N] [--poll-interval S] [--worker-id ID] [--max-retries N] [--base-retry-delay S]
  taskqueue submit-task  NAME --db-url URL [--arg k=v]... [--delay S] [--priority N]
  taskqueue get          --db-url URL --id ID
  taskqueue list         --db-url URL [--state S] [--name N] [--limit N]
  taskqueue requeue      --db-url URL --id ID
  taskqueue dashboard    --db-url URL [--addr ADDR]
  taskqueue archive      --db-url URL --bucket NAME [--retention S] [--interval S]

DATABASE_URL is used as the fallback for --db-url.`)
}

func resolveDBURL(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("database URL required: pass --db-url or set DATABASE_URL")
}

func parseDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
