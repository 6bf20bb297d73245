// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for mnemo.
package config

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Workspace is the persistence root. Empty means the platform default
	// ($XDG_DATA_HOME/mnemo or ~/.local/share/mnemo).
	Workspace string `yaml:"workspace,omitempty"`

	// Session holds defaults applied to newly created sessions.
	Session SessionConfig `yaml:"session,omitempty"`

	// Compaction tunes the conversation compaction engine.
	Compaction CompactionConfig `yaml:"compaction,omitempty"`

	// Memory configures the long-term memory store.
	Memory MemoryConfig `yaml:"memory,omitempty"`

	// Inspector configures the local inspection HTTP server.
	Inspector InspectorConfig `yaml:"inspector,omitempty"`

	// Maintenance configures the background maintenance schedules.
	Maintenance MaintenanceConfig `yaml:"maintenance,omitempty"`

	// Telemetry configures OTLP trace export.
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// SessionConfig holds defaults for new sessions.
type SessionConfig struct {
	Title    string `yaml:"title,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Provider string `yaml:"provider,omitempty"`
}

// CompactionConfig tunes when and how conversations are compacted.
type CompactionConfig struct {
	// ContextWindowTokens is the model context window the threshold is
	// computed against. Defaults to 128000.
	ContextWindowTokens int `yaml:"context_window_tokens,omitempty"`

	// TokenThresholdRatio is the fraction of the window at which
	// compaction triggers. Defaults to 0.8.
	TokenThresholdRatio float64 `yaml:"token_threshold_ratio,omitempty"`

	// KeepRecentMessages is how many recent messages survive compaction
	// verbatim. Defaults to 10.
	KeepRecentMessages int `yaml:"keep_recent_messages,omitempty"`

	// SummaryTokenBudget caps the generated summary size. Defaults to 1024.
	SummaryTokenBudget int `yaml:"summary_token_budget,omitempty"`

	// Encoding selects the tokenizer encoding for estimates
	// (e.g. "cl100k_base"). Empty uses the character heuristic.
	Encoding string `yaml:"encoding,omitempty"`
}

// MemoryConfig configures the SQLite memory store.
type MemoryConfig struct {
	// Path is the database file path. Empty means {workspace}/data/memory.db.
	Path string `yaml:"path,omitempty"`

	// WAL enables WAL journal mode. Defaults to true.
	WAL *bool `yaml:"wal,omitempty"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout,omitempty"`
}

// InspectorConfig configures the local HTTP inspection server.
type InspectorConfig struct {
	// Enabled turns the inspector on. Defaults to false.
	Enabled bool `yaml:"enabled,omitempty"`

	// Listen is the bind address, e.g. "127.0.0.1:7643".
	Listen string `yaml:"listen,omitempty"`
}

// MaintenanceConfig configures the background sweeps.
type MaintenanceConfig struct {
	// Enabled turns the scheduler on. Defaults to false.
	Enabled bool `yaml:"enabled,omitempty"`

	// RepairSchedule is the cron expression for the transcript repair
	// sweep. Defaults to "@hourly".
	RepairSchedule string `yaml:"repair_schedule,omitempty"`

	// CompactSchedule is the cron expression for the main-session
	// compaction check. Defaults to "@every 10m".
	CompactSchedule string `yaml:"compact_schedule,omitempty"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	// Enabled turns trace export on. Defaults to false.
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the OTLP HTTP collector address, e.g. "localhost:4318".
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS for the exporter connection.
	Insecure bool `yaml:"insecure,omitempty"`
}
