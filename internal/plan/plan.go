package plan

// WeightingPlan weights on one dimension. Targets partition the dimension
// into categories; a target may nest child plans for interlocked or
// per-wave weighting.
type WeightingPlan struct {
	FilterMetricName     string            `json:"filter_metric_name"`
	Targets              []WeightingTarget `json:"targets"`
	IsWeightingGroupRoot bool              `json:"is_weighting_group_root,omitempty"`
	Order                int               `json:"order"`
}

// WeightingTarget is one category value inside a plan.
type WeightingTarget struct {
	FilterMetricEntityID int             `json:"filter_metric_entity_id"`
	Target               *float64        `json:"target,omitempty"`
	TargetPopulation     *float64        `json:"target_population,omitempty"`
	Plans                []WeightingPlan `json:"plans,omitempty"`
	Order                int             `json:"order"`
}

// HasValue reports whether the target carries a Target or TargetPopulation.
func (t WeightingTarget) HasValue() bool {
	return t.Target != nil || t.TargetPopulation != nil
}

// Float returns a pointer to v, for building targets inline.
func Float(v float64) *float64 { return &v }

// Clone deep-copies a plan collection.
func Clone(plans []WeightingPlan) []WeightingPlan {
	if plans == nil {
		return nil
	}
	out := make([]WeightingPlan, len(plans))
	for i, p := range plans {
		out[i] = p
		out[i].Targets = cloneTargets(p.Targets)
	}
	return out
}

func cloneTargets(targets []WeightingTarget) []WeightingTarget {
	if targets == nil {
		return nil
	}
	out := make([]WeightingTarget, len(targets))
	for i, t := range targets {
		out[i] = t
		if t.Target != nil {
			out[i].Target = Float(*t.Target)
		}
		if t.TargetPopulation != nil {
			out[i].TargetPopulation = Float(*t.TargetPopulation)
		}
		out[i].Plans = Clone(t.Plans)
	}
	return out
}
