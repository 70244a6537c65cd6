package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root process configuration for the jobdeck daemon.
// Mutable application settings (source credentials, project preferences)
// live in the database, not here; see internal/settings.
type Config struct {
	ListenAddr string
	DBPath     string
	Poll       PollConfig
	Drafts     DraftConfig
	Projects   ProjectConfig
	AI         AIConfig
}

// PollConfig controls the cron-driven ingestion loop.
type PollConfig struct {
	Spec     string   // cron spec, e.g. "@every 6h"
	Country  string   // Adzuna country code: "gb", "us", ...
	Queries  []string // search terms polled against Adzuna
	MaxPages int      // pages fetched per query per cycle
}

// DraftConfig controls ephemeral manual-import drafts.
type DraftConfig struct {
	TTL time.Duration // how long an unconfirmed draft is kept for review
}

// ProjectConfig bounds the settings-update operation.
type ProjectConfig struct {
	MaxSelectable int // ceiling maxProjects is clamped to on update
}

// AIConfig controls the LLM used for generation runs and draft inference.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout (streaming requests excluded)
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
	DBPath     string           `yaml:"db_path"`
	Poll       rawPollConfig    `yaml:"poll"`
	Drafts     rawDraftConfig   `yaml:"drafts"`
	Projects   rawProjectConfig `yaml:"projects"`
	AI         rawAIConfig      `yaml:"ai"`
}

type rawPollConfig struct {
	Spec     string   `yaml:"spec"`
	Country  string   `yaml:"country"`
	Queries  []string `yaml:"queries"`
	MaxPages int      `yaml:"max_pages"`
}

type rawDraftConfig struct {
	TTL string `yaml:"ttl"`
}

type rawProjectConfig struct {
	MaxSelectable int `yaml:"max_selectable"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	draftTTL := 30 * time.Minute // default
	if raw.Drafts.TTL != "" {
		draftTTL, err = time.ParseDuration(raw.Drafts.TTL)
		if err != nil {
			return nil, fmt.Errorf("parse drafts.ttl %q: %w", raw.Drafts.TTL, err)
		}
	}

	aiTimeout := 30 * time.Second // default
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	aiBaseURL := raw.AI.BaseURL
	if aiBaseURL == "" {
		aiBaseURL = defaultOpenAIBaseURL
	}

	listenAddr := raw.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8484"
	}

	dbPath := raw.DBPath
	if dbPath == "" {
		dbPath = "jobdeck.db"
	}

	pollSpec := raw.Poll.Spec
	if pollSpec == "" {
		pollSpec = "@every 6h"
	}

	country := raw.Poll.Country
	if country == "" {
		country = "gb"
	}

	maxPages := raw.Poll.MaxPages
	if maxPages == 0 {
		maxPages = 3
	}

	maxSelectable := raw.Projects.MaxSelectable
	if maxSelectable == 0 {
		maxSelectable = 8
	}

	cfg := &Config{
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		Poll: PollConfig{
			Spec:     pollSpec,
			Country:  country,
			Queries:  raw.Poll.Queries,
			MaxPages: maxPages,
		},
		Drafts:   DraftConfig{TTL: draftTTL},
		Projects: ProjectConfig{MaxSelectable: maxSelectable},
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: aiBaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Drafts.TTL <= 0 {
		return fmt.Errorf("drafts.ttl must be positive, got %v", cfg.Drafts.TTL)
	}

	if cfg.Poll.MaxPages < 1 || cfg.Poll.MaxPages > 10 {
		return fmt.Errorf("poll.max_pages must be between 1 and 10, got %d", cfg.Poll.MaxPages)
	}

	if cfg.Projects.MaxSelectable < 1 {
		return fmt.Errorf("projects.max_selectable must be positive, got %d", cfg.Projects.MaxSelectable)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	return nil
}
