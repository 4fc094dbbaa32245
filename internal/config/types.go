// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config is the engine configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Rerank     RerankConfig     `mapstructure:"rerank"`
	Sleep      SleepConfig      `mapstructure:"sleep"`
}

// DatabaseConfig locates the durable store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AgentConfig binds the tenant scope for this process.
type AgentConfig struct {
	ID string `mapstructure:"id"`
}

// EmbeddingsConfig selects the embedding provider for hybrid search.
type EmbeddingsConfig struct {
	Provider    string `mapstructure:"provider"`
	Model       string `mapstructure:"model"`
	Instruction string `mapstructure:"instruction"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Dimension   int    `mapstructure:"dimension"`
	SweepBatch  int    `mapstructure:"sweep_batch"`
}

// RerankConfig selects the external cross-encoder.
type RerankConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// SleepConfig tunes the maintenance phases.
type SleepConfig struct {
	TidyThreshold         float64 `mapstructure:"tidy_threshold"`
	MaxSnapshotsPerMemory int     `mapstructure:"max_snapshots_per_memory"`
	// MaintenanceIntervalMinutes > 0 enables the background scheduler.
	MaintenanceIntervalMinutes int `mapstructure:"maintenance_interval_minutes"`
}
