package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate, got %v", errs)
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative min threshold", func(c *Config) { c.Queue.MinThreshold = -1 }, "queue.min_threshold"},
		{"zero max threshold", func(c *Config) { c.Queue.MaxThreshold = 0 }, "queue.max_threshold"},
		{"min above max", func(c *Config) { c.Queue.MinThreshold = 20 }, "queue.min_threshold"},
		{"zero batch cap", func(c *Config) { c.Queue.BatchCap = 0 }, "queue.batch_cap"},
		{"negative wait timeout", func(c *Config) { c.Queue.WaitTimeoutSeconds = -5 }, "queue.wait_timeout_seconds"},
		{"zero chunk", func(c *Config) { c.Breakdown.ChunkMinutes = 0 }, "breakdown.chunk_minutes"},
		{"high below medium", func(c *Config) { c.Breakdown.HighThresholdMinutes = 10 }, "breakdown.high_threshold_minutes"},
		{"critical below high", func(c *Config) { c.Breakdown.CriticalThresholdMinutes = 60 }, "breakdown.critical_threshold_minutes"},
		{"zero cache ttl", func(c *Config) { c.Cache.TTLMinutes = 0 }, "cache.ttl_minutes"},
		{"zero cache entries", func(c *Config) { c.Cache.MaxEntries = 0 }, "cache.max_entries"},
		{"zero pool size", func(c *Config) { c.Workers.PoolSize = 0 }, "workers.pool_size"},
		{"zero capacity", func(c *Config) { c.Workers.DefaultCapacity = 0 }, "workers.default_capacity"},
		{"zero heartbeat", func(c *Config) { c.Workers.HeartbeatTimeoutSeconds = 0 }, "workers.heartbeat_timeout_seconds"},
		{"zero scan interval", func(c *Config) { c.Processor.ScanIntervalSeconds = 0 }, "processor.scan_interval_seconds"},
		{"zero task timeout", func(c *Config) { c.Processor.TaskTimeoutMinutes = 0 }, "processor.task_timeout_minutes"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected a validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %v", tt.field, errs)
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "queue.batch_cap", Value: 0, Message: "must be at least 1"},
	}
	if !strings.Contains(errs.Error(), "queue.batch_cap") {
		t.Errorf("single error message = %q", errs.Error())
	}

	errs = append(errs, ValidationError{Field: "cache.ttl_minutes", Value: 0, Message: "must be at least 1"})
	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("multi error message = %q", msg)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Queue.WaitTimeout(); got != 30*time.Second {
		t.Errorf("WaitTimeout() = %v, want 30s", got)
	}
	if got := cfg.Breakdown.MediumThreshold(); got != 30*time.Minute {
		t.Errorf("MediumThreshold() = %v, want 30m", got)
	}
	if got := cfg.Breakdown.HighThreshold(); got != 2*time.Hour {
		t.Errorf("HighThreshold() = %v, want 2h", got)
	}
	if got := cfg.Breakdown.CriticalThreshold(); got != 8*time.Hour {
		t.Errorf("CriticalThreshold() = %v, want 8h", got)
	}
	if got := cfg.Cache.TTL(); got != 30*time.Minute {
		t.Errorf("TTL() = %v, want 30m", got)
	}
	if got := cfg.Workers.HeartbeatTimeout(); got != 90*time.Second {
		t.Errorf("HeartbeatTimeout() = %v, want 90s", got)
	}
	if got := cfg.Processor.ScanInterval(); got != 5*time.Second {
		t.Errorf("ScanInterval() = %v, want 5s", got)
	}
	if got := cfg.Processor.TaskTimeout(); got != 10*time.Minute {
		t.Errorf("TaskTimeout() = %v, want 10m", got)
	}
	if got := cfg.Processor.RebalanceInterval(); got != 30*time.Second {
		t.Errorf("RebalanceInterval() = %v, want 30s", got)
	}
}

func TestResolveDataDir(t *testing.T) {
	tests := []struct {
		name    string
		dataDir string
		want    string
	}{
		{"empty defaults to .hive", "", filepath.Join("/base", ".hive")},
		{"relative joins base", "state", filepath.Join("/base", "state")},
		{"absolute kept", "/var/lib/hive", "/var/lib/hive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PathsConfig{DataDir: tt.dataDir}
			if got := p.ResolveDataDir("/base"); got != tt.want {
				t.Errorf("ResolveDataDir() = %q, want %q", got, tt.want)
			}
		})
	}
}
