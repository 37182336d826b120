package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
	"github.com/MikeSquared-Agency/Weighting/internal/rim"
)

// FatalPrefix starts the single error reported when a batch is abandoned.
const FatalPrefix = "FATAL ERROR: "

// Result holds the rebuilt plans for every subset plus the problems found
// while building them. Warnings are reviewable; any error should block a
// commit.
type Result struct {
	Plans    map[string][]plan.WeightingPlan `json:"plans"`
	Warnings []string                        `json:"warnings"`
	Errors   []string                        `json:"errors"`
}

// Fatal reports whether the batch was abandoned.
func (r Result) Fatal() bool {
	return len(r.Errors) == 1 && strings.HasPrefix(r.Errors[0], FatalPrefix)
}

// Service derives target-weighted plans that reproduce externally
// supplied respondent weights.
type Service struct {
	responses ResponseSource
	waveOf    WaveFunc
	tolerance float64
	logger    *slog.Logger
}

// NewService creates a Service. waveOf may be nil, in which case wave
// membership is not rechecked.
func NewService(responses ResponseSource, waveOf WaveFunc, opts rim.Options, logger *slog.Logger) *Service {
	if opts.PointTolerance <= 0 {
		opts.PointTolerance = rim.DefaultPointTolerance
	}
	return &Service{
		responses: responses,
		waveOf:    waveOf,
		tolerance: opts.PointTolerance,
		logger:    logger,
	}
}

// ReverseScaleFactors rebuilds the plans in replace from weights, keyed by
// response id. Plans in keep are passed through untouched. Any failure
// while rebuilding abandons the whole batch: every replaced subset gets
// an empty plan list and a single fatal error is reported.
func (s *Service) ReverseScaleFactors(ctx context.Context, keep, replace map[string][]plan.WeightingPlan, weights map[int]float64) (result Result) {
	result.Plans = make(map[string][]plan.WeightingPlan, len(keep)+len(replace))
	for id, plans := range keep {
		result.Plans[id] = plan.Clone(plans)
	}

	defer func() {
		if r := recover(); r != nil {
			s.fail(&result, replace, fmt.Errorf("%v", r))
		}
	}()

	b := &batch{svc: s, weights: weights}
	generated, err := b.run(ctx, replace)
	if err != nil {
		s.fail(&result, replace, err)
		return result
	}
	for id, plans := range generated {
		result.Plans[id] = plans
	}
	result.Warnings = b.warnings
	result.Errors = b.errors

	s.logger.Info("reverse generation complete",
		"subsets", len(replace),
		"warnings", len(result.Warnings),
		"errors", len(result.Errors),
	)
	return result
}

func (s *Service) fail(result *Result, replace map[string][]plan.WeightingPlan, err error) {
	s.logger.Error("reverse generation failed", "error", err, "subsets", len(replace))
	for id := range replace {
		result.Plans[id] = []plan.WeightingPlan{}
	}
	result.Warnings = nil
	result.Errors = []string{FatalPrefix + err.Error()}
}

// batch accumulates problems across every subset of one call.
type batch struct {
	svc      *Service
	weights  map[int]float64
	warnings []string
	errors   []string
}

func (b *batch) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

func (b *batch) errorf(format string, args ...any) {
	b.errors = append(b.errors, fmt.Sprintf(format, args...))
}

func (b *batch) run(ctx context.Context, replace map[string][]plan.WeightingPlan) (map[string][]plan.WeightingPlan, error) {
	ids := make([]string, 0, len(replace))
	for id := range replace {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	responses := make(map[string][]Response, len(ids))
	for _, id := range ids {
		rs, err := b.svc.responses.Responses(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load responses for subset %s: %w", id, err)
		}
		sorted := make([]Response, len(rs))
		copy(sorted, rs)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ResponseID < sorted[j].ResponseID })
		responses[id] = sorted
	}
	b.checkCoverage(responses)

	out := make(map[string][]plan.WeightingPlan, len(ids))
	for _, id := range ids {
		plans, err := b.subset(id, replace[id], responses[id])
		if err != nil {
			return nil, fmt.Errorf("subset %s: %w", id, err)
		}
		out[id] = plans
	}
	return out, nil
}

// checkCoverage warns about weighted respondents missing from every
// subset being replaced.
func (b *batch) checkCoverage(responses map[string][]Response) {
	known := make(map[int]bool)
	for _, rs := range responses {
		for _, r := range rs {
			known[r.ResponseID] = true
		}
	}
	var missing []int
	for id, w := range b.weights {
		if w != 0 && !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		b.warnf("%d responses have weights but were not found; they may be archived or have no enabled subset: %s",
			len(missing), formatIDs(missing))
	}
}

func (b *batch) subset(subsetID string, plans []plan.WeightingPlan, responses []Response) ([]plan.WeightingPlan, error) {
	scheme, err := plan.Classify(plans)
	if err != nil {
		return nil, err
	}

	var unweighted []int
	for _, r := range responses {
		if r.Cell.IsUnweighted() && b.weights[r.ResponseID] != 0 {
			unweighted = append(unweighted, r.ResponseID)
		}
	}
	if len(unweighted) > 0 {
		b.warnf("Subset %s: %d responses have weights but are in the unweighted cell and will not be weighted: %s",
			subsetID, len(unweighted), formatIDs(unweighted))
	}

	switch s := scheme.(type) {
	case plan.WaveScheme:
		b.checkWaves(subsetID, s, responses)
		return b.waves(subsetID, s, responses)
	case plan.RimScheme, plan.TargetWeightedScheme:
		label := "Subset " + subsetID
		return b.rebuild(label, scheme, responses), nil
	default:
		return nil, fmt.Errorf("%w: %s", plan.ErrUnsupportedScheme, scheme.Kind())
	}
}

// checkWaves reports unweighted respondents that the wave function places
// in a wave the scheme weights. First match wins inside waveOf.
func (b *batch) checkWaves(subsetID string, s plan.WaveScheme, responses []Response) {
	if b.svc.waveOf == nil {
		return
	}
	drifted := make(map[int][]int)
	for _, r := range responses {
		if !r.Cell.IsUnweighted() {
			continue
		}
		wave, ok := b.svc.waveOf(subsetID, r)
		if !ok {
			continue
		}
		if _, known := s.Wave(wave); known {
			drifted[wave] = append(drifted[wave], r.ResponseID)
		}
	}
	for _, w := range s.Waves() {
		if ids := drifted[w.EntityID]; len(ids) > 0 {
			b.errorf("Subset %s: %d unweighted responses belong to wave %s=%d, which the existing quota cells do not cover: %s",
				subsetID, len(ids), s.Dimension(), w.EntityID, formatIDs(ids))
		}
	}
}

func (b *batch) waves(subsetID string, s plan.WaveScheme, responses []Response) ([]plan.WeightingPlan, error) {
	root := s.Plans()[0]
	out := plan.WeightingPlan{
		FilterMetricName:     root.FilterMetricName,
		IsWeightingGroupRoot: true,
		Order:                root.Order,
	}

	byWave := make(map[int][]Response)
	var stray []int
	for _, r := range responses {
		if r.Cell.IsUnweighted() {
			continue
		}
		if k, ok := r.Cell.Part(s.Dimension()); ok {
			if id, err := strconv.Atoi(k); err == nil {
				if _, known := s.Wave(id); known {
					byWave[id] = append(byWave[id], r)
					continue
				}
			}
		}
		stray = append(stray, r.ResponseID)
	}
	if len(stray) > 0 {
		b.warnf("Subset %s: %d responses are not in any wave of %s and were ignored: %s",
			subsetID, len(stray), s.Dimension(), formatIDs(stray))
	}

	for _, w := range s.Waves() {
		target := w.Target
		target.Target = copyFloat(target.Target)
		target.TargetPopulation = copyFloat(target.TargetPopulation)

		if w.Scheme.Kind() == plan.KindTargetWeighted {
			target.Plans = plan.Clone(w.Scheme.Plans())
			out.Targets = append(out.Targets, target)
			continue
		}

		label := fmt.Sprintf("Subset %s wave %s=%d", subsetID, s.Dimension(), w.EntityID)
		sub := b.rebuild(label, w.Scheme, byWave[w.EntityID])
		if len(sub) == 0 {
			continue
		}
		target.Plans = sub
		out.Targets = append(out.Targets, target)
	}

	if len(out.Targets) == 0 {
		b.warnf("Subset %s: no wave produced any targets", subsetID)
		return []plan.WeightingPlan{}, nil
	}
	return []plan.WeightingPlan{out}, nil
}

// rebuild turns one weighting group's respondents into a target-weighted
// tree in the scheme's dimension order.
func (b *batch) rebuild(label string, scheme plan.Scheme, responses []Response) []plan.WeightingPlan {
	dims := plan.DimensionOrder(scheme)
	cells := b.cellWeights(label, dims, responses)
	if len(cells) == 0 {
		b.warnf("%s: no quota cells with consistent weights; no targets generated", label)
		return []plan.WeightingPlan{}
	}

	cats := categoriesOf(scheme.Plans())
	placed := make([]rim.CellWeight, 0, len(cells))
	var skipped []string
	for _, c := range cells {
		if placeable(dims, cats, c.Key) {
			placed = append(placed, c)
		} else {
			skipped = append(skipped, c.Key)
		}
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		b.warnf("%s: %d quota cells use categories missing from the plan and were skipped: %v", label, len(skipped), skipped)
	}
	if len(placed) == 0 {
		b.warnf("%s: no quota cells match the plan's categories; no targets generated", label)
		return []plan.WeightingPlan{}
	}

	// Normalise only what the tree can hold so every group sums to 1.
	targets, normWarnings := rim.TargetProportions(placed, b.svc.tolerance)
	for _, w := range normWarnings {
		b.warnf("%s: %s", label, w)
	}
	return buildTree(dims, cats, targets)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return plan.Float(*v)
}
