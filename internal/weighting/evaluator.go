package weighting

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
	"github.com/MikeSquared-Agency/Weighting/internal/quota"
	"github.com/MikeSquared-Agency/Weighting/internal/rim"
)

// Group is the result for one independently weighted group of cells. Wave
// is nil outside wave schemes.
type Group struct {
	Wave   *int       `json:"wave,omitempty"`
	Result rim.Result `json:"result"`
}

// Evaluation is the outcome of applying a plan collection to a subset's
// quota cells.
type Evaluation struct {
	Scheme   plan.Kind `json:"scheme"`
	Groups   []Group   `json:"groups"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Evaluator applies a classified plan collection to quota cells.
type Evaluator struct {
	calc   *rim.Calculator
	logger *slog.Logger
}

func NewEvaluator(calc *rim.Calculator, logger *slog.Logger) *Evaluator {
	return &Evaluator{calc: calc, logger: logger}
}

// Evaluate classifies plans and weights cells accordingly: RIM schemes are
// raked, wave schemes are raked per wave, and target-weighted schemes are
// applied directly. Unsupported plan shapes are returned as errors.
func (e *Evaluator) Evaluate(plans []plan.WeightingPlan, cells []quota.CellSample, includeDetails bool) (Evaluation, error) {
	scheme, err := plan.Classify(plans)
	if err != nil {
		return Evaluation{}, err
	}
	ev := Evaluation{Scheme: scheme.Kind()}

	weighted := make([]quota.CellSample, 0, len(cells))
	for _, c := range cells {
		if !c.Cell.IsUnweighted() {
			weighted = append(weighted, c)
		}
	}

	switch s := scheme.(type) {
	case plan.WaveScheme:
		for _, w := range s.Waves() {
			wave := w.EntityID
			key := strconv.Itoa(wave)
			var group []quota.CellSample
			for _, c := range weighted {
				if k, ok := c.Cell.Part(s.Dimension()); ok && k == key {
					group = append(group, quota.CellSample{Cell: c.Cell.Without(s.Dimension()), SampleSize: c.SampleSize})
				}
			}
			result, warnings := e.evaluate(w.Scheme, group, includeDetails)
			for _, msg := range warnings {
				ev.Warnings = append(ev.Warnings, fmt.Sprintf("wave %s=%d: %s", s.Dimension(), wave, msg))
			}
			ev.Groups = append(ev.Groups, Group{Wave: &wave, Result: result})
		}
	default:
		result, warnings := e.evaluate(scheme, weighted, includeDetails)
		ev.Warnings = append(ev.Warnings, warnings...)
		ev.Groups = append(ev.Groups, Group{Result: result})
	}

	for _, g := range ev.Groups {
		if !g.Result.Converged && len(cells) > 0 {
			e.logger.Warn("weighting did not converge",
				"scheme", ev.Scheme,
				"iterations", g.Result.IterationsRequired,
			)
		}
	}
	return ev, nil
}

func (e *Evaluator) evaluate(scheme plan.Scheme, cells []quota.CellSample, includeDetails bool) (rim.Result, []string) {
	switch s := scheme.(type) {
	case plan.RimScheme:
		return e.calc.Calculate(cells, DimensionsFromPlans(s.Plans(), totalSample(cells)), includeDetails), nil
	case plan.TargetWeightedScheme:
		weights, warnings := applyTargets(s, cells)
		return e.calc.Summarize(cells, weights, includeDetails), warnings
	default:
		return rim.Result{}, []string{fmt.Sprintf("scheme %s cannot be evaluated here", scheme.Kind())}
	}
}

// DimensionsFromPlans turns RIM plans into calculator targets. A
// TargetPopulation is used as-is; a Target is a proportion of total.
func DimensionsFromPlans(plans []plan.WeightingPlan, total float64) quota.Dimensions {
	dims := make(quota.Dimensions, 0, len(plans))
	for _, p := range plans {
		d := quota.Dimension{Name: p.FilterMetricName}
		for _, t := range p.Targets {
			switch {
			case t.TargetPopulation != nil:
				d.Targets = append(d.Targets, quota.CategoryTarget{CategoryID: t.FilterMetricEntityID, Target: *t.TargetPopulation})
			case t.Target != nil:
				d.Targets = append(d.Targets, quota.CategoryTarget{CategoryID: t.FilterMetricEntityID, Target: *t.Target * total})
			}
		}
		dims = append(dims, d)
	}
	return dims
}

// applyTargets gives each cell weight target·N/n. Cells without a sample
// or without a target keep weight 1.0.
func applyTargets(s plan.TargetWeightedScheme, cells []quota.CellSample) ([]float64, []string) {
	dims := s.Dimensions()
	targets := s.Targets()
	total := totalSample(cells)

	var warnings []string
	weights := make([]float64, len(cells))
	for i, c := range cells {
		weights[i] = 1.0
		if c.SampleSize == 0 {
			continue
		}
		key, ok := c.Cell.KeyFor(dims)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cell %s does not cover every plan dimension; weight 1.0", c.Cell))
			continue
		}
		t, ok := targets[key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cell %s has no target; weight 1.0", key))
			continue
		}
		weights[i] = t * total / c.SampleSize
	}
	return weights, warnings
}

func totalSample(cells []quota.CellSample) float64 {
	var n float64
	for _, c := range cells {
		n += c.SampleSize
	}
	return n
}
