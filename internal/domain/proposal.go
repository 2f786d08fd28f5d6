package domain

import (
	"strconv"
	"time"
)

// Category is the lifecycle bucket a proposal falls into after classification.
type Category string

const (
	CategoryApproved Category = "APPROVED"
	CategoryRejected Category = "REJECTED"
	CategoryPending  Category = "PENDING"
	CategoryStale    Category = "STALE"
	CategoryUnknown  Category = "UNKNOWN"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryApproved,
	CategoryRejected,
	CategoryPending,
	CategoryStale,
	CategoryUnknown,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// LabelAssignable reports whether a label alone may put an open proposal into c.
// APPROVED needs a merge signal and STALE needs an age check, so neither qualifies.
func (c Category) LabelAssignable() bool {
	return c.Valid() && c != CategoryApproved && c != CategoryStale
}

const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Comment is a free-text note left on a proposal by someone.
type Comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// Review is a review submission; only authorship and text matter here.
type Review struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	State  string `json:"state,omitempty"`
}

// RawProposal is the sparse pull-request record handed over by a source.
// Empty strings and nil counters mean the field was absent upstream.
type RawProposal struct {
	ID         string
	Number     int
	Repository string
	Title      string
	Body       string
	Author     string
	State      string
	Merged     bool

	CreatedAt string
	UpdatedAt string
	ClosedAt  string
	MergedAt  string

	Labels    []string
	Milestone string
	Comments  []Comment
	Reviews   []Review

	CommentsCount       *int
	ReviewCommentsCount *int
	Commits             *int
	Additions           *int
	Deletions           *int
	ChangedFiles        *int
}

// Ref identifies a raw record in logs even when the id is missing.
func (r RawProposal) Ref() string {
	if r.ID != "" {
		return r.ID
	}
	if r.Number != 0 {
		return r.Repository + "#" + strconv.Itoa(r.Number)
	}
	return r.Repository + "#?"
}

// Proposal is the normalized, classified and scored projection of a RawProposal.
type Proposal struct {
	ID          string     `json:"id"`
	Number      int        `json:"number"`
	Repository  string     `json:"repository"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
	State       string     `json:"state"`
	Merged      bool       `json:"merged"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	MergedAt    *time.Time `json:"merged_at,omitempty"`
	Labels      []string   `json:"labels"`
	Milestone   string     `json:"milestone,omitempty"`

	CommentsCount       int `json:"comments_count"`
	ReviewCommentsCount int `json:"review_comments_count"`
	CommitsCount        int `json:"commits_count"`
	AdditionsCount      int `json:"additions_count"`
	DeletionsCount      int `json:"deletions_count"`
	ChangedFilesCount   int `json:"changed_files_count"`

	Category         Category `json:"category"`
	ApprovalTimeDays *float64 `json:"approval_time_days,omitempty"`
	MilestoneCount   int      `json:"milestone_count"`
	Curators         []string `json:"curators"`
	BountyAmount     *float64 `json:"bounty_amount,omitempty"`
	RejectionReason  *string  `json:"rejection_reason,omitempty"`
	PerformanceScore float64  `json:"performance_score"`
	IsStale          bool     `json:"is_stale"`

	Comments []Comment `json:"comments,omitempty"`
	Reviews  []Review  `json:"reviews,omitempty"`
}

// Ref is the human-facing reference used by the CLI ("repo#number").
func (p Proposal) Ref() string {
	return p.Repository + "#" + strconv.Itoa(p.Number)
}
