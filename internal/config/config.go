package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete hive engine configuration
type Config struct {
	Queue     QueueConfig     `mapstructure:"queue"`
	Breakdown BreakdownConfig `mapstructure:"breakdown"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// QueueConfig controls admission behavior
type QueueConfig struct {
	// MinThreshold is the minimum number of candidates required before a
	// batch is admitted. Below this the queue deliberately waits.
	MinThreshold int `mapstructure:"min_threshold"`
	// MaxThreshold is the maximum number of items active at once.
	MaxThreshold int `mapstructure:"max_threshold"`
	// BatchCap limits how many items a single admit cycle may take.
	BatchCap int `mapstructure:"batch_cap"`
	// WaitTimeoutSeconds is how long the queue waits below MinThreshold
	// before admitting a partial batch anyway.
	WaitTimeoutSeconds int `mapstructure:"wait_timeout_seconds"`
}

// BreakdownConfig controls complexity classification and decomposition
type BreakdownConfig struct {
	// MediumThresholdMinutes is the duration at or above which an item is
	// classified medium instead of low.
	MediumThresholdMinutes int `mapstructure:"medium_threshold_minutes"`
	// HighThresholdMinutes is the duration at or above which an item is
	// classified high.
	HighThresholdMinutes int `mapstructure:"high_threshold_minutes"`
	// CriticalThresholdMinutes is the duration at or above which an item is
	// classified critical.
	CriticalThresholdMinutes int `mapstructure:"critical_threshold_minutes"`
	// ChunkMinutes is the microtask size for high/critical decomposition.
	ChunkMinutes int `mapstructure:"chunk_minutes"`
	// MediumChunkMinutes is the microtask size for medium decomposition.
	MediumChunkMinutes int `mapstructure:"medium_chunk_minutes"`
}

// CacheConfig controls the breakdown cache
type CacheConfig struct {
	// TTLMinutes is how long a cached breakdown stays valid.
	TTLMinutes int `mapstructure:"ttl_minutes"`
	// MaxEntries caps the cache size; oldest entries are evicted first.
	MaxEntries int `mapstructure:"max_entries"`
}

// WorkersConfig controls the worker pool and registry
type WorkersConfig struct {
	// PoolSize is the number of concurrent execution slots.
	PoolSize int `mapstructure:"pool_size"`
	// DefaultCapacity is the per-worker concurrent task capacity.
	DefaultCapacity int `mapstructure:"default_capacity"`
	// MaxConsecutiveErrors marks a worker failed once reached.
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors"`
	// HeartbeatTimeoutSeconds marks a worker failed when no heartbeat
	// arrives within this window.
	HeartbeatTimeoutSeconds int `mapstructure:"heartbeat_timeout_seconds"`
}

// ProcessorConfig controls the orchestration loop
type ProcessorConfig struct {
	// ScanIntervalSeconds is how long the loop sleeps when the ledger has
	// no candidates.
	ScanIntervalSeconds int `mapstructure:"scan_interval_seconds"`
	// TaskTimeoutMinutes is the per-microtask execution budget.
	TaskTimeoutMinutes int `mapstructure:"task_timeout_minutes"`
	// AdapterRetries is how many times a failed ledger write is retried.
	AdapterRetries int `mapstructure:"adapter_retries"`
	// RebalanceIntervalSeconds is how often the coordinator rebalances
	// workers across complexity tiers.
	RebalanceIntervalSeconds int `mapstructure:"rebalance_interval_seconds"`
}

// LedgerConfig controls the task source adapter
type LedgerConfig struct {
	// Path is the location of the YAML ledger file.
	Path string `mapstructure:"path"`
	// Watch enables fsnotify-based change detection so the processor can
	// rescan early when the ledger file changes.
	Watch bool `mapstructure:"watch"`
}

// LoggingConfig controls engine logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: debug, info, warn, error
	Level string `mapstructure:"level"`
}

// PathsConfig controls where the engine stores its state
type PathsConfig struct {
	// DataDir is where queue snapshots and logs are written.
	// Defaults to .hive in the working directory.
	DataDir string `mapstructure:"data_dir"`
}

// WaitTimeout returns the admission wait timeout as a time.Duration
func (c *QueueConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// MediumThreshold returns the medium classification threshold as a Duration
func (c *BreakdownConfig) MediumThreshold() time.Duration {
	return time.Duration(c.MediumThresholdMinutes) * time.Minute
}

// HighThreshold returns the high classification threshold as a Duration
func (c *BreakdownConfig) HighThreshold() time.Duration {
	return time.Duration(c.HighThresholdMinutes) * time.Minute
}

// CriticalThreshold returns the critical classification threshold as a Duration
func (c *BreakdownConfig) CriticalThreshold() time.Duration {
	return time.Duration(c.CriticalThresholdMinutes) * time.Minute
}

// TTL returns the cache entry lifetime as a time.Duration
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// HeartbeatTimeout returns the heartbeat window as a time.Duration
func (c *WorkersConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutSeconds) * time.Second
}

// ScanInterval returns the idle rescan interval as a time.Duration
func (c *ProcessorConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// TaskTimeout returns the per-microtask budget as a time.Duration
func (c *ProcessorConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMinutes) * time.Minute
}

// RebalanceInterval returns the rebalance cadence as a time.Duration
func (c *ProcessorConfig) RebalanceInterval() time.Duration {
	return time.Duration(c.RebalanceIntervalSeconds) * time.Second
}

// ResolveDataDir returns the resolved data directory path.
// If DataDir is empty, it returns the default path relative to baseDir.
// If DataDir starts with ~, it expands to the user's home directory.
func (p *PathsConfig) ResolveDataDir(baseDir string) string {
	if p.DataDir == "" {
		return filepath.Join(baseDir, ".hive")
	}

	path := p.DataDir

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			MinThreshold:       5,
			MaxThreshold:       10,
			BatchCap:           10,
			WaitTimeoutSeconds: 30,
		},
		Breakdown: BreakdownConfig{
			MediumThresholdMinutes:   30,
			HighThresholdMinutes:     120,
			CriticalThresholdMinutes: 480,
			ChunkMinutes:             15,
			MediumChunkMinutes:       30,
		},
		Cache: CacheConfig{
			TTLMinutes: 30,
			MaxEntries: 100,
		},
		Workers: WorkersConfig{
			PoolSize:                5,
			DefaultCapacity:         3,
			MaxConsecutiveErrors:    3,
			HeartbeatTimeoutSeconds: 90,
		},
		Processor: ProcessorConfig{
			ScanIntervalSeconds:      5,
			TaskTimeoutMinutes:       10,
			AdapterRetries:           3,
			RebalanceIntervalSeconds: 30,
		},
		Ledger: LedgerConfig{
			Path:  "ledger.yaml",
			Watch: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Paths: PathsConfig{
			DataDir: "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Queue defaults
	viper.SetDefault("queue.min_threshold", defaults.Queue.MinThreshold)
	viper.SetDefault("queue.max_threshold", defaults.Queue.MaxThreshold)
	viper.SetDefault("queue.batch_cap", defaults.Queue.BatchCap)
	viper.SetDefault("queue.wait_timeout_seconds", defaults.Queue.WaitTimeoutSeconds)

	// Breakdown defaults
	viper.SetDefault("breakdown.medium_threshold_minutes", defaults.Breakdown.MediumThresholdMinutes)
	viper.SetDefault("breakdown.high_threshold_minutes", defaults.Breakdown.HighThresholdMinutes)
	viper.SetDefault("breakdown.critical_threshold_minutes", defaults.Breakdown.CriticalThresholdMinutes)
	viper.SetDefault("breakdown.chunk_minutes", defaults.Breakdown.ChunkMinutes)
	viper.SetDefault("breakdown.medium_chunk_minutes", defaults.Breakdown.MediumChunkMinutes)

	// Cache defaults
	viper.SetDefault("cache.ttl_minutes", defaults.Cache.TTLMinutes)
	viper.SetDefault("cache.max_entries", defaults.Cache.MaxEntries)

	// Worker defaults
	viper.SetDefault("workers.pool_size", defaults.Workers.PoolSize)
	viper.SetDefault("workers.default_capacity", defaults.Workers.DefaultCapacity)
	viper.SetDefault("workers.max_consecutive_errors", defaults.Workers.MaxConsecutiveErrors)
	viper.SetDefault("workers.heartbeat_timeout_seconds", defaults.Workers.HeartbeatTimeoutSeconds)

	// Processor defaults
	viper.SetDefault("processor.scan_interval_seconds", defaults.Processor.ScanIntervalSeconds)
	viper.SetDefault("processor.task_timeout_minutes", defaults.Processor.TaskTimeoutMinutes)
	viper.SetDefault("processor.adapter_retries", defaults.Processor.AdapterRetries)
	viper.SetDefault("processor.rebalance_interval_seconds", defaults.Processor.RebalanceIntervalSeconds)

	// Ledger defaults
	viper.SetDefault("ledger.path", defaults.Ledger.Path)
	viper.SetDefault("ledger.watch", defaults.Ledger.Watch)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hive")
	}
	// Fall back to ~/.config/hive
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hive"
	}
	return filepath.Join(home, ".config", "hive")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
