package evaluator

import (
	"strings"
	"text/template"

	"GrantScanner/internal/domain"
)

var criterionQuestion = map[domain.Criterion]string{
	domain.CriterionCompleteness: "How complete is the proposal?",
	domain.CriterionClarity:      "How clear and well-written is the proposal?",
	domain.CriterionFeasibility:  "How feasible is the proposed project?",
	domain.CriterionImpact:       "What is the potential impact on the ecosystem?",
	domain.CriterionMilestones:   "Are milestones well-defined and realistic?",
}

var curatorReport = template.Must(template.New("curator").Funcs(template.FuncMap{
	"title":    criterionTitle,
	"question": func(c domain.Criterion) string { return criterionQuestion[c] },
	"pct":      func(v float64) float64 { return v * 100 },
}).Parse(`# Curator Report for: {{.Title}}

## Overall Assessment
- **Overall Score**: {{printf "%.2f" .Report.OverallScore}}/1.00
- **Risk Level**: {{.Report.RiskLevel}}
- **Approval Probability**: {{printf "%.1f" (pct .Report.ApprovalProbability)}}%

## Detailed Evaluation
{{range .Criteria}}{{$score := index $.Report.Scores .}}
### {{title .}} ({{printf "%.2f" $score}}/1.00)
{{printf "%.0f" (pct $score)}}% - {{question .}}
{{end}}
## Strengths
{{range .Report.Strengths}}- {{.}}
{{else}}- None identified
{{end}}
## Areas for Improvement
{{range .Report.Weaknesses}}- {{.}}
{{else}}- None identified
{{end}}
## Recommendations
{{range .Report.Recommendations}}- {{.}}
{{else}}- None
{{end}}
## Recommendation
{{.Report.Verdict}}
`))

// RenderCuratorReport formats an evaluation as a markdown report.
func RenderCuratorReport(p domain.Proposal, report domain.EvaluationReport) (string, error) {
	title := p.Title
	if title == "" {
		title = "Unknown Proposal"
	}

	var b strings.Builder
	err := curatorReport.Execute(&b, struct {
		Title    string
		Report   domain.EvaluationReport
		Criteria []domain.Criterion
	}{
		Title:    title,
		Report:   report,
		Criteria: domain.Criteria,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

func criterionTitle(c domain.Criterion) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
