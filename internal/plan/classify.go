package plan

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/MikeSquared-Agency/Weighting/internal/quota"
)

// ErrUnsupportedScheme is returned for plan collections that are neither
// wave, target-weighted nor RIM-weighted.
var ErrUnsupportedScheme = errors.New("unsupported weighting scheme")

// AreAllPlansRimWeighted reports whether every plan names a dimension,
// has no nested plans, and carries at least one target value.
func AreAllPlansRimWeighted(plans []WeightingPlan) bool {
	if len(plans) == 0 {
		return false
	}
	for _, p := range plans {
		if p.FilterMetricName == "" {
			return false
		}
		hasValue := false
		for _, t := range p.Targets {
			if len(t.Plans) > 0 {
				return false
			}
			if t.HasValue() {
				hasValue = true
			}
		}
		if !hasValue {
			return false
		}
	}
	return true
}

// IsWavePlan reports whether plans is a single weighting group root.
func IsWavePlan(plans []WeightingPlan) bool {
	return len(plans) == 1 && plans[0].IsWeightingGroupRoot
}

// InterlockedDepth is the length of the single-plan nesting chain. It is
// zero unless exactly one plan is present.
func InterlockedDepth(plans []WeightingPlan) int {
	if len(plans) != 1 {
		return 0
	}
	child := 0
	for _, t := range plans[0].Targets {
		if d := InterlockedDepth(t.Plans); d > child {
			child = d
		}
	}
	return 1 + child
}

// IsTargetWeighted reports whether plans is an interlocked chain deeper
// than one level in which every nested plan set is again a single chain.
func IsTargetWeighted(plans []WeightingPlan) bool {
	return InterlockedDepth(plans) > 1 && isChain(plans)
}

func isChain(plans []WeightingPlan) bool {
	if len(plans) != 1 {
		return false
	}
	for _, t := range plans[0].Targets {
		if len(t.Plans) > 0 && !isChain(t.Plans) {
			return false
		}
	}
	return true
}

// Scheme is the resolved interpretation of a plan collection: one of
// RimScheme, WaveScheme or TargetWeightedScheme.
type Scheme interface {
	Kind() Kind
	Plans() []WeightingPlan
}

type Kind string

const (
	KindRim            Kind = "rim"
	KindWave           Kind = "wave"
	KindTargetWeighted Kind = "target_weighted"
)

// RimScheme is a flat list of independent dimensions to rake over.
type RimScheme struct {
	plans []WeightingPlan
}

func (s RimScheme) Kind() Kind             { return KindRim }
func (s RimScheme) Plans() []WeightingPlan { return s.plans }
func (s RimScheme) Dimensions() []string   { return planNames(s.plans) }

// TargetWeightedScheme stores an explicit target per full cell key.
type TargetWeightedScheme struct {
	plans []WeightingPlan
}

func (s TargetWeightedScheme) Kind() Kind             { return KindTargetWeighted }
func (s TargetWeightedScheme) Plans() []WeightingPlan { return s.plans }

// Dimensions reads the nesting order off the chain, following the first
// target that nests further at each level.
func (s TargetWeightedScheme) Dimensions() []string {
	var dims []string
	plans := s.plans
	for len(plans) == 1 {
		dims = append(dims, plans[0].FilterMetricName)
		var next []WeightingPlan
		for _, t := range plans[0].Targets {
			if len(t.Plans) > 0 {
				next = t.Plans
				break
			}
		}
		plans = next
	}
	return dims
}

// Targets flattens the chain into full cell key -> target.
func (s TargetWeightedScheme) Targets() map[string]float64 {
	out := make(map[string]float64)
	collectTargets(s.plans, "", out)
	return out
}

func collectTargets(plans []WeightingPlan, prefix string, out map[string]float64) {
	for _, p := range plans {
		for _, t := range p.Targets {
			key := strconv.Itoa(t.FilterMetricEntityID)
			if prefix != "" {
				key = quota.JoinKeys(prefix, key)
			}
			if len(t.Plans) > 0 {
				collectTargets(t.Plans, key, out)
				continue
			}
			if t.Target != nil {
				out[key] = *t.Target
			}
		}
	}
}

// Wave is one independently weighted partition of a wave plan.
type Wave struct {
	EntityID int
	Target   WeightingTarget
	Scheme   Scheme
}

// WaveScheme partitions respondents by the root plan's dimension.
type WaveScheme struct {
	plans []WeightingPlan
	waves []Wave
}

func (s WaveScheme) Kind() Kind             { return KindWave }
func (s WaveScheme) Plans() []WeightingPlan { return s.plans }
func (s WaveScheme) Waves() []Wave          { return s.waves }

// Dimension is the wave partitioning dimension.
func (s WaveScheme) Dimension() string { return s.plans[0].FilterMetricName }

// Wave looks up a wave by entity id.
func (s WaveScheme) Wave(entityID int) (Wave, bool) {
	for _, w := range s.waves {
		if w.EntityID == entityID {
			return w, true
		}
	}
	return Wave{}, false
}

// Classify resolves plans into exactly one scheme, checking wave, then
// target-weighted, then RIM. Wave sub-schemes are classified recursively.
func Classify(plans []WeightingPlan) (Scheme, error) {
	switch {
	case IsWavePlan(plans):
		root := plans[0]
		if root.FilterMetricName == "" {
			return nil, fmt.Errorf("wave plan has no filter metric: %w", ErrUnsupportedScheme)
		}
		ws := WaveScheme{plans: plans}
		for _, t := range root.Targets {
			sub, err := Classify(t.Plans)
			if err != nil {
				return nil, fmt.Errorf("wave %s=%d: %w", root.FilterMetricName, t.FilterMetricEntityID, err)
			}
			if sub.Kind() == KindWave {
				return nil, fmt.Errorf("wave %s=%d nests another wave plan: %w", root.FilterMetricName, t.FilterMetricEntityID, ErrUnsupportedScheme)
			}
			ws.waves = append(ws.waves, Wave{EntityID: t.FilterMetricEntityID, Target: t, Scheme: sub})
		}
		return ws, nil
	case IsTargetWeighted(plans):
		return TargetWeightedScheme{plans: plans}, nil
	case AreAllPlansRimWeighted(plans):
		return RimScheme{plans: plans}, nil
	default:
		return nil, ErrUnsupportedScheme
	}
}

// DimensionOrder returns the nesting order of a non-wave scheme.
func DimensionOrder(s Scheme) []string {
	switch v := s.(type) {
	case RimScheme:
		return v.Dimensions()
	case TargetWeightedScheme:
		return v.Dimensions()
	default:
		return nil
	}
}

func planNames(plans []WeightingPlan) []string {
	names := make([]string, len(plans))
	for i, p := range plans {
		names[i] = p.FilterMetricName
	}
	return names
}
