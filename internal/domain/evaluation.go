package domain

import "time"

// Criterion names one axis of the content rubric.
type Criterion string

const (
	CriterionCompleteness Criterion = "completeness"
	CriterionClarity      Criterion = "clarity"
	CriterionFeasibility  Criterion = "feasibility"
	CriterionImpact       Criterion = "impact"
	CriterionMilestones   Criterion = "milestones"
)

// Criteria lists rubric criteria in report order.
var Criteria = []Criterion{
	CriterionCompleteness,
	CriterionClarity,
	CriterionFeasibility,
	CriterionImpact,
	CriterionMilestones,
}

// RiskLevel buckets the overall score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// Verdict is the curator-style recommendation derived from approval probability.
type Verdict string

const (
	VerdictApprove       Verdict = "APPROVE"
	VerdictReviewFurther Verdict = "REVIEW_FURTHER"
	VerdictReject        Verdict = "REJECT"
)

// EvaluationReport is the ephemeral output of the content evaluator.
type EvaluationReport struct {
	ProposalID          string                `json:"proposal_id"`
	Scores              map[Criterion]float64 `json:"criteria_scores"`
	OverallScore        float64               `json:"overall_score"`
	RiskLevel           RiskLevel             `json:"risk_level"`
	ApprovalProbability float64               `json:"approval_probability"`
	Strengths           []string              `json:"strengths"`
	Weaknesses          []string              `json:"weaknesses"`
	Recommendations     []string              `json:"recommendations"`
	Verdict             Verdict               `json:"verdict"`
	EvaluatedAt         time.Time             `json:"evaluated_at"`
}
