package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/arashn/taskqueue/internal/config"
	"github.com/arashn/taskqueue/internal/dashboard"
	"github.com/arashn/taskqueue/internal/store/postgres"
)

func runDashboard(ctx context.Context, args []string) error {
	defaultDBURL := ""
	defaultAddr := ":8090"
	if envCfg, _ := config.LoadDashboardConfig(); envCfg != nil {
		defaultDBURL = envCfg.Database.URL
		defaultAddr = envCfg.Addr
	}

	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	dbURL := fs.String("db-url", defaultDBURL, "PostgreSQL connection URL (defaults to TASKQUEUE_DB_URL, falls back to DATABASE_URL)")
	addr := fs.String("addr", defaultAddr, "listen address")
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

	d := dashboard.New(st)
	srv := &http.Server{Addr: *addr, Handler: d.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.InfoContext(ctx, "dashboard listening", "addr", *addr)
	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
