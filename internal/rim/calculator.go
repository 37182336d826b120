package rim

import (
	"math"

	"github.com/MikeSquared-Agency/Weighting/internal/quota"
)

// QuotaDetail is the per-cell audit record emitted when details are
// requested.
type QuotaDetail struct {
	Cell        quota.Cell `json:"cell"`
	SampleSize  float64    `json:"sample_size"`
	ScaleFactor float64    `json:"scale_factor"`
	Target      float64    `json:"target"`
}

// Result is the outcome of one raking run. Exactly one of QuotaDetails
// and WeightsDistribution is set for a non-empty input.
type Result struct {
	MinWeight           float64       `json:"min_weight"`
	MaxWeight           float64       `json:"max_weight"`
	EfficiencyScore     float64       `json:"efficiency_score"`
	Converged           bool          `json:"converged"`
	IterationsRequired  int           `json:"iterations_required"`
	QuotaDetails        []QuotaDetail `json:"quota_details,omitempty"`
	WeightsDistribution []float64     `json:"weights_distribution,omitempty"`
}

// Calculator runs iterative proportional fitting. It holds no mutable
// state and is safe for concurrent use.
type Calculator struct {
	opts Options
}

// NewCalculator creates a Calculator. Zero-valued options fall back to
// the defaults.
func NewCalculator(opts Options) *Calculator {
	if opts.PointTolerance <= 0 {
		opts.PointTolerance = DefaultPointTolerance
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Calculator{opts: opts}
}

// Options returns the calculator's effective options.
func (c *Calculator) Options() Options { return c.opts }

type cellState struct {
	cell     quota.Cell
	original float64
	scaled   float64
	weight   float64
}

type targetGroup struct {
	target  float64
	members []int
}

// Calculate rakes the cells' sample sizes towards the dimension targets.
// Cells with a zero sample size keep a weight of 1.0.
func (c *Calculator) Calculate(cells []quota.CellSample, dims quota.Dimensions, includeDetails bool) Result {
	if len(cells) == 0 {
		return Result{}
	}

	states := make([]cellState, len(cells))
	for i, cs := range cells {
		states[i] = cellState{cell: cs.Cell, original: cs.SampleSize, scaled: cs.SampleSize, weight: 1.0}
	}
	groups := buildGroups(states, dims)

	converged := false
	iterations := 0
	for iterations < c.opts.MaxIterations {
		iterations++
		for _, g := range groups {
			var total float64
			for _, i := range g.members {
				total += states[i].scaled
			}
			if total == 0 {
				continue
			}
			factor := g.target / total
			for _, i := range g.members {
				states[i].scaled *= factor
			}
		}

		converged = true
		for i := range states {
			next := 1.0
			if states[i].original != 0 {
				next = states[i].scaled / states[i].original
			}
			if math.Abs(next-states[i].weight) > c.opts.PointTolerance {
				converged = false
			}
			states[i].weight = next
		}
		if converged {
			break
		}
	}

	result := c.summarize(states, includeDetails)
	result.Converged = converged
	result.IterationsRequired = iterations
	return result
}

// Summarize builds a result for weights that were fixed without raking,
// such as a target-weighted scheme. The result reports converged with
// zero iterations. weights must be parallel to cells.
func (c *Calculator) Summarize(cells []quota.CellSample, weights []float64, includeDetails bool) Result {
	if len(cells) == 0 {
		return Result{}
	}
	states := make([]cellState, len(cells))
	for i, cs := range cells {
		states[i] = cellState{cell: cs.Cell, original: cs.SampleSize, scaled: cs.SampleSize * weights[i], weight: weights[i]}
	}
	result := c.summarize(states, includeDetails)
	result.Converged = true
	return result
}

func (c *Calculator) summarize(states []cellState, includeDetails bool) Result {
	result := Result{EfficiencyScore: efficiency(states)}
	result.MinWeight, result.MaxWeight = weightRange(states)
	if includeDetails {
		result.QuotaDetails = details(states, c.opts.PointTolerance)
	} else {
		result.WeightsDistribution = distribution(states)
	}
	return result
}

// buildGroups indexes, for every (dimension, category) target, the cells
// in that category. Order follows dimension then category declaration.
func buildGroups(states []cellState, dims quota.Dimensions) []targetGroup {
	var groups []targetGroup
	for _, d := range dims {
		byKey := make(map[string][]int)
		for i, s := range states {
			if k, ok := s.cell.Part(d.Name); ok {
				byKey[k] = append(byKey[k], i)
			}
		}
		for _, t := range d.Targets {
			groups = append(groups, targetGroup{target: t.Target, members: byKey[t.Key()]})
		}
	}
	return groups
}

func weightRange(states []cellState) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range states {
		lo = math.Min(lo, s.weight)
		hi = math.Max(hi, s.weight)
	}
	return lo, hi
}

// efficiency is (Σ n·w)² / (N · Σ n·w²).
func efficiency(states []cellState) float64 {
	var n, nw, nww float64
	for _, s := range states {
		n += s.original
		nw += s.original * s.weight
		nww += s.original * s.weight * s.weight
	}
	if n == 0 || nww == 0 {
		return 0
	}
	return nw * nw / (n * nww)
}

func distribution(states []cellState) []float64 {
	buckets := make([]float64, DistributionBuckets)
	for _, s := range states {
		buckets[bucketIndex(s.weight)] += s.original
	}
	return buckets
}

func bucketIndex(weight float64) int {
	idx := int(math.Floor(weight / DistributionBucketWidth))
	if idx < 0 {
		return 0
	}
	if idx >= DistributionBuckets {
		return DistributionBuckets - 1
	}
	return idx
}

func details(states []cellState, tolerance float64) []QuotaDetail {
	weights := make([]CellWeight, len(states))
	for i, s := range states {
		weights[i] = CellWeight{Key: s.cell.Key(), SampleSize: s.original, Weight: s.weight}
	}
	targets, _ := TargetProportions(weights, tolerance)

	out := make([]QuotaDetail, len(states))
	for i, s := range states {
		out[i] = QuotaDetail{
			Cell:        s.cell,
			SampleSize:  s.original,
			ScaleFactor: s.weight,
			Target:      targets[s.cell.Key()],
		}
	}
	return out
}
