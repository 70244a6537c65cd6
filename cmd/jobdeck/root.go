package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvelez/jobdeck/internal/config"
	"github.com/mvelez/jobdeck/internal/generate"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobdeck",
	Short: "Job posting pipeline tracker",
	Long:  "JobDeck ingests job postings from multiple sources, tracks them through a stage pipeline, and drives AI generation runs for applications.",
	// Default to `serve` so that `jobdeck` with no args runs the daemon.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBDECK_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBDECK_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBDECK_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// setupAI builds the generation and draft-inference backends. With AI
// disabled, runs complete empty and draft inference is rejected.
func setupAI(cfg *config.Config, logger *slog.Logger) (generate.Generator, generate.DraftInferrer) {
	if !cfg.AI.Enabled {
		logger.Info("ai disabled, generation runs will produce no output")
		return generate.NewNopGenerator(), generate.DisabledInferrer{}
	}

	// Streamed generations get no client-level timeout: it would cut long
	// runs short. Draft inference is a single request and gets the
	// configured one.
	gen := generate.NewOpenAIClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, &http.Client{})
	inferrer := generate.NewOpenAIClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, &http.Client{Timeout: cfg.AI.Timeout})
	logger.Info("ai enabled", "model", cfg.AI.Model)
	return gen, inferrer
}
