package breakdown

import (
	"time"

	"github.com/hivelab/hive/internal/task"
)

// Default classification thresholds. Durations below the medium threshold
// classify low; at or above each threshold the item moves up a bucket.
const (
	defaultMediumThreshold   = 30 * time.Minute
	defaultHighThreshold     = 2 * time.Hour
	defaultCriticalThreshold = 8 * time.Hour
)

// Classifier buckets work items into complexity tiers by estimated duration.
type Classifier struct {
	mediumThreshold   time.Duration
	highThreshold     time.Duration
	criticalThreshold time.Duration
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithMediumThreshold sets the duration at which items classify medium.
func WithMediumThreshold(d time.Duration) ClassifierOption {
	return func(c *Classifier) { c.mediumThreshold = d }
}

// WithHighThreshold sets the duration at which items classify high.
func WithHighThreshold(d time.Duration) ClassifierOption {
	return func(c *Classifier) { c.highThreshold = d }
}

// WithCriticalThreshold sets the duration at which items classify critical.
func WithCriticalThreshold(d time.Duration) ClassifierOption {
	return func(c *Classifier) { c.criticalThreshold = d }
}

// NewClassifier creates a Classifier with the given options.
// Unset options use defaults.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		mediumThreshold:   defaultMediumThreshold,
		highThreshold:     defaultHighThreshold,
		criticalThreshold: defaultCriticalThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify buckets the item by estimated duration. Items with zero or
// negative duration classify low; they become a single microtask without
// decomposition.
func (c *Classifier) Classify(item *task.WorkItem) task.Complexity {
	d := item.EstimatedDuration
	switch {
	case d <= 0:
		return task.ComplexityLow
	case d >= c.criticalThreshold:
		return task.ComplexityCritical
	case d >= c.highThreshold:
		return task.ComplexityHigh
	case d >= c.mediumThreshold:
		return task.ComplexityMedium
	default:
		return task.ComplexityLow
	}
}
