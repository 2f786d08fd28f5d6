// Package lifecycle assigns lifecycle categories and computes elapsed-time metrics.
package lifecycle

import (
	"strings"
	"time"

	"GrantScanner/internal/domain"
)

// DefaultStaleThresholdDays is how long an open proposal may wait before it is STALE.
const DefaultStaleThresholdDays = 60

// Config parameterizes the classifier.
type Config struct {
	StaleThresholdDays int
	// LabelCategories maps lowercase label names to categories for open proposals.
	LabelCategories map[string]domain.Category
}

// DefaultConfig returns the stock threshold and label vocabulary.
func DefaultConfig() Config {
	labels := make(map[string]domain.Category, len(domain.Categories))
	for _, c := range domain.Categories {
		if c.LabelAssignable() {
			labels[strings.ToLower(string(c))] = c
		}
	}
	labels["admin-review"] = domain.CategoryPending

	return Config{
		StaleThresholdDays: DefaultStaleThresholdDays,
		LabelCategories:    labels,
	}
}

// Signals is everything the state machine looks at.
type Signals struct {
	State     string
	Merged    bool
	MergedAt  *time.Time
	ClosedAt  *time.Time
	CreatedAt *time.Time
	Labels    []string
}

// Classifier is immutable after construction.
type Classifier struct {
	threshold time.Duration
	labels    map[string]domain.Category
}

// NewClassifier normalizes the config; a non-positive threshold falls back to the default.
// Label entries that map to APPROVED, STALE or an unknown category are dropped.
func NewClassifier(cfg Config) *Classifier {
	days := cfg.StaleThresholdDays
	if days <= 0 {
		days = DefaultStaleThresholdDays
	}

	vocabulary := cfg.LabelCategories
	if vocabulary == nil {
		vocabulary = DefaultConfig().LabelCategories
	}
	labels := make(map[string]domain.Category, len(vocabulary))
	for name, category := range vocabulary {
		if !category.LabelAssignable() {
			continue
		}
		labels[strings.ToLower(strings.TrimSpace(name))] = category
	}

	return &Classifier{
		threshold: time.Duration(days) * 24 * time.Hour,
		labels:    labels,
	}
}

// Threshold returns the staleness threshold in effect.
func (c *Classifier) Threshold() time.Duration {
	return c.threshold
}

// Classify runs the five-step rule. The staleness check comes first: an open record
// past the threshold is STALE even when merge or close signals are present.
func (c *Classifier) Classify(s Signals, now time.Time) domain.Category {
	state := strings.ToLower(strings.TrimSpace(s.State))

	if c.IsStale(state, s.CreatedAt, now) {
		return domain.CategoryStale
	}
	if s.Merged || s.MergedAt != nil {
		return domain.CategoryApproved
	}

	switch state {
	case domain.StateClosed:
		return domain.CategoryRejected
	case domain.StateOpen:
		for _, label := range s.Labels {
			if category, ok := c.labels[strings.ToLower(strings.TrimSpace(label))]; ok {
				return category
			}
		}
		return domain.CategoryPending
	default:
		return domain.CategoryUnknown
	}
}

// IsStale reports whether an open proposal created at created has outlived the threshold.
func (c *Classifier) IsStale(state string, created *time.Time, now time.Time) bool {
	if !strings.EqualFold(strings.TrimSpace(state), domain.StateOpen) || created == nil {
		return false
	}
	return now.UTC().Sub(created.UTC()) > c.threshold
}
