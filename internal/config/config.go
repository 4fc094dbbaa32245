// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".agent-memory"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
)

// Load reads configuration from ~/.agent-memory/config.json, falling back
// to defaults when the file is absent. Environment variables override the
// file in every case.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(homeDir, DefaultConfigDir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// DefaultConfig returns the built-in defaults with environment overrides
// applied.
func DefaultConfig() *Config {
	cfg, _ := unmarshal(newViper())
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyCredentialFallbacks(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "./agent-memory.db")
	v.SetDefault("agent.id", "default")

	v.SetDefault("embeddings.provider", "none")
	v.SetDefault("embeddings.sweep_batch", 100)

	v.SetDefault("rerank.provider", "none")

	v.SetDefault("sleep.tidy_threshold", 0.05)
	v.SetDefault("sleep.max_snapshots_per_memory", 10)
	v.SetDefault("sleep.maintenance_interval_minutes", 0)
}

// bindEnv wires the environment contract. The variable names are stable
// API; they do not follow viper's derived naming.
func bindEnv(v *viper.Viper) {
	binds := map[string]string{
		"database.path":          "AGENT_MEMORY_DB",
		"agent.id":               "AGENT_MEMORY_AGENT_ID",
		"embeddings.provider":    "AGENT_MEMORY_EMBEDDINGS_PROVIDER",
		"embeddings.model":       "AGENT_MEMORY_EMBEDDINGS_MODEL",
		"embeddings.instruction": "AGENT_MEMORY_EMBEDDINGS_INSTRUCTION",
		"rerank.provider":        "AGENT_MEMORY_RERANK_PROVIDER",
		"rerank.model":           "AGENT_MEMORY_RERANK_MODEL",
		"rerank.api_key":         "AGENT_MEMORY_RERANK_API_KEY",
		"rerank.base_url":        "AGENT_MEMORY_RERANK_BASE_URL",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

// applyCredentialFallbacks resolves provider credentials from the
// conventional environment variables when the config carries none.
func applyCredentialFallbacks(cfg *Config) {
	if cfg.Embeddings.APIKey == "" || cfg.Embeddings.BaseURL == "" {
		key, base := credentialsFor(cfg.Embeddings.Provider)
		if cfg.Embeddings.APIKey == "" {
			cfg.Embeddings.APIKey = key
		}
		if cfg.Embeddings.BaseURL == "" {
			cfg.Embeddings.BaseURL = base
		}
	}
	if cfg.Rerank.APIKey == "" {
		switch strings.ToLower(cfg.Rerank.Provider) {
		case "openai":
			cfg.Rerank.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// credentialsFor maps a provider name to its conventional credential
// variables.
func credentialsFor(provider string) (apiKey, baseURL string) {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL")
	case "gemini", "google":
		return os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_BASE_URL")
	case "qwen", "dashscope", "tongyi":
		return os.Getenv("DASHSCOPE_API_KEY"), os.Getenv("DASHSCOPE_BASE_URL")
	}
	return "", ""
}

// validate rejects configurations the engine cannot run with.
func validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if cfg.Agent.ID == "" {
		return fmt.Errorf("agent.id cannot be empty")
	}

	switch strings.ToLower(cfg.Embeddings.Provider) {
	case "", "none", "openai", "gemini", "google", "qwen", "dashscope", "tongyi":
	default:
		return fmt.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}

	switch strings.ToLower(cfg.Rerank.Provider) {
	case "", "none", "openai", "jina", "cohere":
	default:
		return fmt.Errorf("unknown rerank provider %q", cfg.Rerank.Provider)
	}

	if cfg.Sleep.TidyThreshold < 0 || cfg.Sleep.TidyThreshold > 1 {
		return fmt.Errorf("sleep.tidy_threshold must be in [0, 1]")
	}
	return nil
}
