package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "queue.min_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateQueue()...)
	errors = append(errors, c.validateBreakdown()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateWorkers()...)
	errors = append(errors, c.validateProcessor()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateQueue() []ValidationError {
	var errors []ValidationError

	if c.Queue.MinThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.min_threshold",
			Value:   c.Queue.MinThreshold,
			Message: "must not be negative",
		})
	}
	if c.Queue.MaxThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.max_threshold",
			Value:   c.Queue.MaxThreshold,
			Message: "must be at least 1",
		})
	}
	if c.Queue.MaxThreshold >= 1 && c.Queue.MinThreshold > c.Queue.MaxThreshold {
		errors = append(errors, ValidationError{
			Field:   "queue.min_threshold",
			Value:   c.Queue.MinThreshold,
			Message: fmt.Sprintf("must not exceed queue.max_threshold (%d)", c.Queue.MaxThreshold),
		})
	}
	if c.Queue.BatchCap < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.batch_cap",
			Value:   c.Queue.BatchCap,
			Message: "must be at least 1",
		})
	}
	if c.Queue.WaitTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.wait_timeout_seconds",
			Value:   c.Queue.WaitTimeoutSeconds,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateBreakdown() []ValidationError {
	var errors []ValidationError

	if c.Breakdown.ChunkMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "breakdown.chunk_minutes",
			Value:   c.Breakdown.ChunkMinutes,
			Message: "must be at least 1",
		})
	}
	if c.Breakdown.MediumChunkMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "breakdown.medium_chunk_minutes",
			Value:   c.Breakdown.MediumChunkMinutes,
			Message: "must be at least 1",
		})
	}
	if c.Breakdown.MediumThresholdMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "breakdown.medium_threshold_minutes",
			Value:   c.Breakdown.MediumThresholdMinutes,
			Message: "must be at least 1",
		})
	}
	// Thresholds must be strictly increasing so every duration maps to
	// exactly one complexity bucket.
	if c.Breakdown.HighThresholdMinutes <= c.Breakdown.MediumThresholdMinutes {
		errors = append(errors, ValidationError{
			Field:   "breakdown.high_threshold_minutes",
			Value:   c.Breakdown.HighThresholdMinutes,
			Message: fmt.Sprintf("must exceed breakdown.medium_threshold_minutes (%d)", c.Breakdown.MediumThresholdMinutes),
		})
	}
	if c.Breakdown.CriticalThresholdMinutes <= c.Breakdown.HighThresholdMinutes {
		errors = append(errors, ValidationError{
			Field:   "breakdown.critical_threshold_minutes",
			Value:   c.Breakdown.CriticalThresholdMinutes,
			Message: fmt.Sprintf("must exceed breakdown.high_threshold_minutes (%d)", c.Breakdown.HighThresholdMinutes),
		})
	}

	return errors
}

func (c *Config) validateCache() []ValidationError {
	var errors []ValidationError

	if c.Cache.TTLMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "cache.ttl_minutes",
			Value:   c.Cache.TTLMinutes,
			Message: "must be at least 1",
		})
	}
	if c.Cache.MaxEntries < 1 {
		errors = append(errors, ValidationError{
			Field:   "cache.max_entries",
			Value:   c.Cache.MaxEntries,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateWorkers() []ValidationError {
	var errors []ValidationError

	if c.Workers.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "workers.pool_size",
			Value:   c.Workers.PoolSize,
			Message: "must be at least 1",
		})
	}
	if c.Workers.DefaultCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "workers.default_capacity",
			Value:   c.Workers.DefaultCapacity,
			Message: "must be at least 1",
		})
	}
	if c.Workers.MaxConsecutiveErrors < 1 {
		errors = append(errors, ValidationError{
			Field:   "workers.max_consecutive_errors",
			Value:   c.Workers.MaxConsecutiveErrors,
			Message: "must be at least 1",
		})
	}
	if c.Workers.HeartbeatTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "workers.heartbeat_timeout_seconds",
			Value:   c.Workers.HeartbeatTimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateProcessor() []ValidationError {
	var errors []ValidationError

	if c.Processor.ScanIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.scan_interval_seconds",
			Value:   c.Processor.ScanIntervalSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Processor.TaskTimeoutMinutes < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.task_timeout_minutes",
			Value:   c.Processor.TaskTimeoutMinutes,
			Message: "must be at least 1",
		})
	}
	if c.Processor.AdapterRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "processor.adapter_retries",
			Value:   c.Processor.AdapterRetries,
			Message: "must not be negative",
		})
	}
	if c.Processor.RebalanceIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.rebalance_interval_seconds",
			Value:   c.Processor.RebalanceIntervalSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
