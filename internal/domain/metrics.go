package domain

import "time"

// DurationStats summarizes approval times in days.
type DurationStats struct {
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// Breakdown is the shared shape of the overall, per-repository and per-author views.
type Breakdown struct {
	Total        int              `json:"total"`
	Counts       map[Category]int `json:"counts"`
	ApprovalRate float64          `json:"approval_rate"`
	ApprovalTime *DurationStats   `json:"approval_time,omitempty"`
	Authors      int              `json:"authors"`
	Curators     int              `json:"curators"`
}

// CuratorBreakdown extends Breakdown with the number of programs a curator touched.
type CuratorBreakdown struct {
	Breakdown
	ProgramsWorkedOn int `json:"programs_worked_on"`
}

// MetricsSummary is recomputed from the proposal table on demand.
type MetricsSummary struct {
	GeneratedAt       time.Time                   `json:"generated_at"`
	Overall           Breakdown                   `json:"overall"`
	ByRepository      map[string]Breakdown        `json:"by_repository"`
	ByAuthor          map[string]Breakdown        `json:"by_author"`
	ByCurator         map[string]CuratorBreakdown `json:"by_curator"`
	TotalRepositories int                         `json:"total_repositories"`
	TotalAuthors      int                         `json:"total_authors"`
	TotalCurators     int                         `json:"total_curators"`
}
