// Package extract pulls structured signals out of free-form proposal text.
// Every function is total: absent or malformed text yields a zero value.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"GrantScanner/internal/domain"
)

var (
	// Numeric milestone patterns; the largest number across all matches wins.
	milestonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)milestones?\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)phase\s+(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s+milestones?`),
	}

	// Bounty patterns in priority order; the first pattern that matches decides.
	bountyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:USDC|USD|DOT)\b`),
		regexp.MustCompile(`(?i)\b(?:USDC|USD|DOT)\s*(\d[\d,]*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\b(?:amount|budget|grant)\s*:\s*\$?\s*(\d[\d,]*(?:\.\d+)?)`),
	}
)

// DefaultRejectionKeywords are matched against lowercased comment bodies.
var DefaultRejectionKeywords = []string{
	"reject",
	"rejected",
	"decline",
	"declined",
	"not approved",
	"does not meet",
	"insufficient",
	"incomplete",
	"denied",
}

// Config holds the vocabularies used by the extractor.
type Config struct {
	RejectionKeywords []string
}

// DefaultConfig returns the stock vocabulary.
func DefaultConfig() Config {
	return Config{RejectionKeywords: DefaultRejectionKeywords}
}

// Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	rejectionKeywords []string
}

// New copies the configured vocabularies into a new extractor.
func New(cfg Config) *Extractor {
	keywords := cfg.RejectionKeywords
	if len(keywords) == 0 {
		keywords = DefaultRejectionKeywords
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Extractor{rejectionKeywords: lowered}
}

// MilestoneCount infers how many milestones the text describes.
func (e *Extractor) MilestoneCount(text string) int {
	if text == "" {
		return 0
	}

	best, found := 0, false
	for _, pattern := range milestonePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			found = true
			if n > best {
				best = n
			}
		}
	}
	if found {
		return best
	}

	return strings.Count(strings.ToLower(text), "milestone")
}

// BountyAmount returns the first monetary amount found, or nil.
func (e *Extractor) BountyAmount(text string) *float64 {
	if text == "" {
		return nil
	}

	for _, pattern := range bountyPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
		if err != nil {
			return nil
		}
		return &amount
	}

	return nil
}

// RejectionReason returns the body of the first comment that reads like a rejection.
// Merged proposals never carry a rejection reason.
func (e *Extractor) RejectionReason(comments []domain.Comment, merged bool) *string {
	if merged {
		return nil
	}

	for _, comment := range comments {
		body := strings.ToLower(comment.Body)
		for _, kw := range e.rejectionKeywords {
			if strings.Contains(body, kw) {
				reason := comment.Body
				return &reason
			}
		}
	}

	return nil
}
