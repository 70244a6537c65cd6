package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvelez/jobdeck/internal/api"
	"github.com/mvelez/jobdeck/internal/ingest"
	"github.com/mvelez/jobdeck/internal/pipeline"
	"github.com/mvelez/jobdeck/internal/poll"
	"github.com/mvelez/jobdeck/internal/runner"
	"github.com/mvelez/jobdeck/internal/sponsor"
	"github.com/mvelez/jobdeck/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and poll scheduler",
	Long:  "Start the HTTP API and the cron-driven source poller; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_spec", cfg.Poll.Spec,
		"queries", len(cfg.Poll.Queries),
		"ai_enabled", cfg.AI.Enabled,
	)

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	sponsors := sponsor.NewRegistry()
	drafts := ingest.NewDraftRegistry(cfg.Drafts.TTL)
	normalizer := ingest.NewNormalizer(st, sponsors, drafts, logger)
	engine := pipeline.NewEngine(st, logger)

	gen, inferrer := setupAI(cfg, logger)
	controller := runner.NewController(gen, st, st, logger)

	server := api.NewServer(
		st, engine, normalizer, drafts, inferrer, controller,
		st.Settings(), cfg.Projects.MaxSelectable, logger,
	)

	pollClient := &http.Client{Timeout: 30 * time.Second}
	adzuna := poll.NewAdzunaFetcher(cfg.Poll.Country, pollClient)
	visa := poll.NewVisaFeedFetcher(pollClient)
	retrier := poll.NewRetrier(2, 5*time.Second, logger)
	poller := poll.NewPoller(
		st.Settings(), normalizer, adzuna, visa, sponsors, retrier,
		cfg.Poll.Queries, cfg.Poll.MaxPages, logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := poll.NewScheduler(poller, cfg.Poll.Spec, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("goodbye")
	return nil
}
