package evaluator

import (
	"fmt"
	"math"

	"GrantScanner/internal/domain"
)

const weightTolerance = 1e-9

// Rubric holds per-criterion weights. Weights must cover every criterion and sum to 1.
type Rubric struct {
	Weights map[domain.Criterion]float64
}

// DefaultRubric is the stock weighting.
func DefaultRubric() Rubric {
	return Rubric{Weights: map[domain.Criterion]float64{
		domain.CriterionCompleteness: 0.25,
		domain.CriterionClarity:      0.20,
		domain.CriterionFeasibility:  0.25,
		domain.CriterionImpact:       0.20,
		domain.CriterionMilestones:   0.10,
	}}
}

// Validate checks that the weights are complete, non-negative and sum to 1.
func (r Rubric) Validate() error {
	var sum float64
	for _, c := range domain.Criteria {
		w, ok := r.Weights[c]
		if !ok {
			return fmt.Errorf("rubric: missing weight for %s", c)
		}
		if w < 0 {
			return fmt.Errorf("rubric: negative weight %.4f for %s", w, c)
		}
		sum += w
	}
	if len(r.Weights) != len(domain.Criteria) {
		return fmt.Errorf("rubric: unexpected criteria, got %d weights", len(r.Weights))
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("rubric: weights sum to %.6f, want 1", sum)
	}
	return nil
}

func (r Rubric) clone() Rubric {
	weights := make(map[domain.Criterion]float64, len(r.Weights))
	for c, w := range r.Weights {
		weights[c] = w
	}
	return Rubric{Weights: weights}
}
