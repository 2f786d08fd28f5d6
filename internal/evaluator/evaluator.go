// Package evaluator scores proposal narratives against a fixed weighted rubric.
package evaluator

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"GrantScanner/internal/domain"
)

var (
	expectedSections   = []string{"objective", "deliverables", "timeline", "budget", "team"}
	technicalTerms     = []string{"substrate", "polkadot", "parachain", "runtime", "pallet", "ink", "wasm"}
	approachKeywords   = []string{"implementation", "architecture", "design", "approach"}
	ecosystemKeywords  = []string{"ecosystem", "community", "developer", "adoption", "integration"}
	innovationKeywords = []string{"novel", "innovative", "new", "first", "unique"}

	headerPattern         = regexp.MustCompile(`##|###|#\s`)
	listPattern           = regexp.MustCompile(`(?m)[-*]\s|^\d+\.`)
	codePattern           = regexp.MustCompile("```|`.*`")
	durationPattern       = regexp.MustCompile(`(?i)\d+\s*(week|month|day)`)
	milestoneSpanPattern  = regexp.MustCompile(`(?i)\d+\s*(week|month)`)
	teamPattern           = regexp.MustCompile(`(?i)team|developer|contributor`)
	openSourcePattern     = regexp.MustCompile(`(?i)open\s*source|github|license`)
	documentationPattern  = regexp.MustCompile(`(?i)documentation|tutorial|guide|example`)
	milestoneMentionRegex = regexp.MustCompile(`(?i)milestone|phase|stage`)
)

var strengthText = map[domain.Criterion]string{
	domain.CriterionCompleteness: "Comprehensive proposal with detailed information",
	domain.CriterionClarity:      "Clear and well-structured proposal",
	domain.CriterionFeasibility:  "Realistic and achievable project plan",
	domain.CriterionImpact:       "High potential ecosystem impact",
	domain.CriterionMilestones:   "Well-defined milestones and timeline",
}

var weaknessText = map[domain.Criterion]string{
	domain.CriterionCompleteness: "Incomplete proposal - missing key information",
	domain.CriterionClarity:      "Unclear or poorly structured proposal",
	domain.CriterionFeasibility:  "Project feasibility concerns",
	domain.CriterionImpact:       "Limited ecosystem impact",
	domain.CriterionMilestones:   "Poorly defined milestones",
}

var recommendationText = map[domain.Criterion]string{
	domain.CriterionCompleteness: "Add more detailed project description and deliverables",
	domain.CriterionClarity:      "Improve proposal structure with clear sections",
	domain.CriterionFeasibility:  "Provide more detailed implementation plan and timeline",
	domain.CriterionImpact:       "Better articulate the ecosystem impact and benefits",
	domain.CriterionMilestones:   "Define clear, measurable milestones with timelines",
}

const (
	strengthThreshold = 0.7
	weaknessThreshold = 0.5
)

// Evaluator is immutable and safe for concurrent use.
type Evaluator struct {
	rubric Rubric
	clock  func() time.Time
}

// New validates the rubric; the clock only stamps EvaluatedAt and may be nil.
func New(rubric Rubric, clock func() time.Time) (*Evaluator, error) {
	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{rubric: rubric.clone(), clock: clock}, nil
}

// Evaluate scores a single proposal. It never fails.
func (e *Evaluator) Evaluate(p domain.Proposal) domain.EvaluationReport {
	description := p.Description
	var bounty float64
	if p.BountyAmount != nil {
		bounty = *p.BountyAmount
	}

	scores := map[domain.Criterion]float64{
		domain.CriterionCompleteness: Completeness(p.Title, description, p.MilestoneCount),
		domain.CriterionClarity:      Clarity(description),
		domain.CriterionFeasibility:  Feasibility(description, bounty),
		domain.CriterionImpact:       Impact(description),
		domain.CriterionMilestones:   Milestones(p.MilestoneCount, description),
	}

	var overall float64
	for _, c := range domain.Criteria {
		overall += scores[c] * e.rubric.Weights[c]
	}
	// Strip float noise so that a sum meant to be 0.8 lands on 0.8.
	overall = clamp(math.Round(overall*1e9) / 1e9)

	probability := ApprovalProbability(overall)
	report := domain.EvaluationReport{
		ProposalID:          p.ID,
		Scores:              scores,
		OverallScore:        overall,
		RiskLevel:           RiskLevelFor(overall),
		ApprovalProbability: probability,
		Strengths:           []string{},
		Weaknesses:          []string{},
		Recommendations:     []string{},
		Verdict:             VerdictFor(probability),
		EvaluatedAt:         e.clock().UTC(),
	}

	for _, c := range domain.Criteria {
		score := scores[c]
		if score > strengthThreshold {
			report.Strengths = append(report.Strengths, strengthText[c])
		}
		if score < weaknessThreshold {
			report.Weaknesses = append(report.Weaknesses, weaknessText[c])
			report.Recommendations = append(report.Recommendations, recommendationText[c])
		}
	}

	return report
}

// Completeness rewards a descriptive title, long body, expected sections and milestones.
func Completeness(title, description string, milestoneCount int) float64 {
	var score float64
	if utf8.RuneCountInString(title) > 10 {
		score += 0.2
	}
	switch length := utf8.RuneCountInString(description); {
	case length > 500:
		score += 0.3
	case length > 200:
		score += 0.2
	}
	score += float64(countKeywords(description, expectedSections)) / float64(len(expectedSections)) * 0.3
	if milestoneCount > 0 {
		score += 0.2
	}
	return clamp(score)
}

// Clarity rewards markdown structure, lists, technical vocabulary and code.
func Clarity(description string) float64 {
	if description == "" {
		return 0
	}

	var score float64
	if headerPattern.MatchString(description) {
		score += 0.3
	}
	if listPattern.MatchString(description) {
		score += 0.2
	}
	score += math.Min(float64(countKeywords(description, technicalTerms))/float64(len(technicalTerms)), 0.3)
	if codePattern.MatchString(description) {
		score += 0.2
	}
	return clamp(score)
}

// Feasibility rewards timelines, team info, a stated approach and a modest budget.
func Feasibility(description string, bounty float64) float64 {
	var score float64
	if durationPattern.MatchString(description) {
		score += 0.3
	}
	if teamPattern.MatchString(description) {
		score += 0.2
	}
	if countKeywords(description, approachKeywords) > 0 {
		score += 0.2
	}
	switch {
	case bounty <= 0:
	case bounty < 50000:
		score += 0.3
	case bounty < 100000:
		score += 0.2
	default:
		score += 0.1
	}
	return clamp(score)
}

// Impact rewards ecosystem and innovation language, open source and documentation.
func Impact(description string) float64 {
	var score float64
	score += math.Min(float64(countKeywords(description, ecosystemKeywords))/float64(len(ecosystemKeywords)), 0.3)
	score += math.Min(float64(countKeywords(description, innovationKeywords))/float64(len(innovationKeywords)), 0.3)
	if openSourcePattern.MatchString(description) {
		score += 0.2
	}
	if documentationPattern.MatchString(description) {
		score += 0.2
	}
	return clamp(score)
}

// Milestones rewards an explicit milestone count, phase wording and time spans.
func Milestones(milestoneCount int, description string) float64 {
	var score float64
	switch {
	case milestoneCount >= 3:
		score += 0.4
	case milestoneCount >= 1:
		score += 0.2
	}
	if milestoneMentionRegex.MatchString(description) {
		score += 0.3
	}
	if milestoneSpanPattern.MatchString(description) {
		score += 0.3
	}
	return clamp(score)
}

// RiskLevelFor maps an overall score onto a risk bucket; lower bounds are inclusive.
func RiskLevelFor(overall float64) domain.RiskLevel {
	switch {
	case overall >= 0.8:
		return domain.RiskLow
	case overall >= 0.6:
		return domain.RiskMedium
	case overall >= 0.4:
		return domain.RiskHigh
	default:
		return domain.RiskVeryHigh
	}
}

// ApprovalProbability is a coarse step lookup on the overall score.
func ApprovalProbability(overall float64) float64 {
	switch {
	case overall >= 0.8:
		return 0.85
	case overall >= 0.7:
		return 0.70
	case overall >= 0.6:
		return 0.50
	case overall >= 0.5:
		return 0.30
	default:
		return 0.15
	}
}

// VerdictFor turns an approval probability into a curator recommendation.
func VerdictFor(probability float64) domain.Verdict {
	switch {
	case probability > 0.6:
		return domain.VerdictApprove
	case probability < 0.3:
		return domain.VerdictReject
	default:
		return domain.VerdictReviewFurther
	}
}

func countKeywords(text string, keywords []string) int {
	lowered := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
