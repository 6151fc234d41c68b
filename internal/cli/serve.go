package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/orchestrator"
	"jobmate/autoapply-service/internal/scheduler"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port        string
	NoScheduler bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run periodic discovery and the HTTP API",
		Long: `Start the discovery scheduler (one cycle immediately, then every
SCRAPE_INTERVAL_HOURS) over the stored resume keywords, and serve the
applied, discovered and unknown-question sets over HTTP until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "listen port (default SERVE_PORT)")
	cmd.Flags().BoolVar(&opts.NoScheduler, "no-scheduler", false, "serve the API without periodic discovery")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := opts.App(ctx)
	if err != nil {
		return err
	}
	log := opts.logger()
	cfg := app.Config

	port := opts.Port
	if port == "" {
		port = cfg.Port
	}

	// ── Scheduler ────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if !opts.NoScheduler {
		source := func(ctx context.Context) []orchestrator.DiscoverRequest {
			return scheduler.KeywordSearches(app.Store.ResumeKeywords(ctx),
				cfg.SearchLocation, cfg.SearchPlatforms, cfg.SearchLimit)
		}
		sched = scheduler.New(app.Orchestrator, source, cfg.ScrapeIntervalHours, log)
		if err := sched.Start(ctx); err != nil {
			return WrapExitError(ExitCommandError, "scheduler", err)
		}
		defer sched.Stop()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	runs := func() map[string]any {
		out := map[string]any{}
		if r, ok := app.Orchestrator.LastRun(); ok {
			out["apply"] = r
		}
		if r, ok := app.Orchestrator.LastDiscovery(); ok {
			out["discovery"] = r
		}
		if sched != nil {
			if s, ok := sched.Last(); ok {
				out["scheduler"] = s
			}
		}
		return out
	}
	h := kanban.NewHandler(app.Kanban, app.Store, runs, Version)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serve: listening", "addr", srv.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitFailure, "http server", err)
		}
	case <-ctx.Done():
	}

	log.Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("serve: shutdown error", "err", err)
	}
	log.Info("serve: stopped")
	return nil
}
