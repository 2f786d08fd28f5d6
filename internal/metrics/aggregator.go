// Package metrics derives summary statistics from the proposal table.
package metrics

import (
	"sort"
	"time"

	"GrantScanner/internal/domain"
)

// Aggregator recomputes a MetricsSummary from scratch on every call.
type Aggregator struct {
	clock func() time.Time
}

// NewAggregator wires the clock used for GeneratedAt.
func NewAggregator(clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{clock: clock}
}

// Aggregate builds the overall, per-repository, per-author and per-curator views.
func (a *Aggregator) Aggregate(proposals []domain.Proposal) domain.MetricsSummary {
	summary := domain.MetricsSummary{
		GeneratedAt:  a.clock().UTC(),
		Overall:      breakdown(proposals),
		ByRepository: map[string]domain.Breakdown{},
		ByAuthor:     map[string]domain.Breakdown{},
		ByCurator:    map[string]domain.CuratorBreakdown{},
	}

	byRepo := map[string][]domain.Proposal{}
	byAuthor := map[string][]domain.Proposal{}
	byCurator := map[string][]domain.Proposal{}
	for _, p := range proposals {
		byRepo[p.Repository] = append(byRepo[p.Repository], p)
		byAuthor[authorKey(p)] = append(byAuthor[authorKey(p)], p)
		for _, curator := range distinct(p.Curators) {
			byCurator[curator] = append(byCurator[curator], p)
		}
	}

	for repo, group := range byRepo {
		summary.ByRepository[repo] = breakdown(group)
	}
	for author, group := range byAuthor {
		summary.ByAuthor[author] = breakdown(group)
	}
	for curator, group := range byCurator {
		programs := map[string]struct{}{}
		for _, p := range group {
			programs[p.Repository] = struct{}{}
		}
		summary.ByCurator[curator] = domain.CuratorBreakdown{
			Breakdown:        breakdown(group),
			ProgramsWorkedOn: len(programs),
		}
	}

	summary.TotalRepositories = len(byRepo)
	summary.TotalAuthors = len(byAuthor)
	summary.TotalCurators = len(byCurator)
	return summary
}

// ApprovalRate is approved/total, or 0 for an empty set.
func ApprovalRate(approved, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(approved) / float64(total)
}

// ApprovalTimeStats summarizes the non-nil samples; nil when there are none.
func ApprovalTimeStats(proposals []domain.Proposal) *domain.DurationStats {
	samples := make([]float64, 0, len(proposals))
	for _, p := range proposals {
		if p.ApprovalTimeDays != nil {
			samples = append(samples, *p.ApprovalTimeDays)
		}
	}
	if len(samples) == 0 {
		return nil
	}

	sort.Float64s(samples)

	var sum float64
	for _, v := range samples {
		sum += v
	}

	n := len(samples)
	median := samples[n/2]
	if n%2 == 0 {
		median = (samples[n/2-1] + samples[n/2]) / 2
	}

	return &domain.DurationStats{
		Mean:    sum / float64(n),
		Median:  median,
		Min:     samples[0],
		Max:     samples[n-1],
		Samples: n,
	}
}

func breakdown(proposals []domain.Proposal) domain.Breakdown {
	counts := make(map[domain.Category]int, len(domain.Categories))
	for _, c := range domain.Categories {
		counts[c] = 0
	}

	authors := map[string]struct{}{}
	curators := map[string]struct{}{}
	for _, p := range proposals {
		category := p.Category
		if !category.Valid() {
			category = domain.CategoryUnknown
		}
		counts[category]++
		authors[authorKey(p)] = struct{}{}
		for _, c := range p.Curators {
			if c != "" {
				curators[c] = struct{}{}
			}
		}
	}

	return domain.Breakdown{
		Total:        len(proposals),
		Counts:       counts,
		ApprovalRate: ApprovalRate(counts[domain.CategoryApproved], len(proposals)),
		ApprovalTime: ApprovalTimeStats(proposals),
		Authors:      len(authors),
		Curators:     len(curators),
	}
}

func authorKey(p domain.Proposal) string {
	if p.Author == "" {
		return "Unknown"
	}
	return p.Author
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
