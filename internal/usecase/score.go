package usecase

import (
	"math"

	"GrantScanner/internal/domain"
)

const (
	approvedBonus     = 10
	quickApprovalDays = 30
	quickBonus        = 5
	engagementCap     = 5
)

// PerformanceScore rewards approval, quick turnaround, discussion and activity.
func PerformanceScore(p domain.Proposal) float64 {
	var score float64
	if p.Category == domain.CategoryApproved {
		score += approvedBonus
	}
	if d := p.ApprovalTimeDays; d != nil && *d > 0 && *d < quickApprovalDays {
		score += quickBonus
	}

	score += math.Min(float64(p.CommentsCount)/10, engagementCap)
	score += math.Min(float64(p.ReviewCommentsCount)/5, engagementCap)
	score += math.Min(float64(p.CommitsCount)/5, engagementCap)
	score += math.Min(float64(p.AdditionsCount+p.DeletionsCount)/100, engagementCap)

	return math.Max(score, 0)
}
