package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rimPlans() []WeightingPlan {
	return []WeightingPlan{
		{FilterMetricName: "Gender", Targets: []WeightingTarget{
			{FilterMetricEntityID: 1, Target: Float(0.5)},
			{FilterMetricEntityID: 2, Target: Float(0.5)},
		}},
		{FilterMetricName: "Age", Targets: []WeightingTarget{
			{FilterMetricEntityID: 1, Target: Float(0.3)},
			{FilterMetricEntityID: 2, Target: Float(0.7)},
		}},
	}
}

func targetWeightedPlans() []WeightingPlan {
	leaf := func(a, b float64) []WeightingPlan {
		return []WeightingPlan{{FilterMetricName: "Age", Targets: []WeightingTarget{
			{FilterMetricEntityID: 1, Target: Float(a)},
			{FilterMetricEntityID: 2, Target: Float(b)},
		}}}
	}
	return []WeightingPlan{{FilterMetricName: "Gender", Targets: []WeightingTarget{
		{FilterMetricEntityID: 1, Plans: leaf(0.1, 0.4)},
		{FilterMetricEntityID: 2, Plans: leaf(0.2, 0.3)},
	}}}
}

func wavePlans() []WeightingPlan {
	return []WeightingPlan{{FilterMetricName: "Wave", IsWeightingGroupRoot: true, Targets: []WeightingTarget{
		{FilterMetricEntityID: 10, Plans: rimPlans()},
		{FilterMetricEntityID: 11, Plans: targetWeightedPlans()},
	}}}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name           string
		plans          []WeightingPlan
		rim            bool
		wave           bool
		targetWeighted bool
		depth          int
	}{
		{"rim", rimPlans(), true, false, false, 0},
		{"single rim plan", rimPlans()[:1], true, false, false, 1},
		{"target weighted", targetWeightedPlans(), false, false, true, 2},
		{"wave", wavePlans(), false, true, false, 3},
		{"empty", nil, false, false, false, 0},
		{"no values", []WeightingPlan{{FilterMetricName: "Gender", Targets: []WeightingTarget{{FilterMetricEntityID: 1}}}}, false, false, false, 1},
		{"unnamed", []WeightingPlan{{Targets: []WeightingTarget{{FilterMetricEntityID: 1, Target: Float(1)}}}}, false, false, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rim, AreAllPlansRimWeighted(tt.plans), "rim")
			assert.Equal(t, tt.wave, IsWavePlan(tt.plans), "wave")
			assert.Equal(t, tt.targetWeighted, IsTargetWeighted(tt.plans), "target weighted")
			assert.Equal(t, tt.depth, InterlockedDepth(tt.plans), "depth")
		})
	}
}

func TestIsTargetWeightedRejectsBranching(t *testing.T) {
	plans := targetWeightedPlans()
	plans[0].Targets[1].Plans = append(plans[0].Targets[1].Plans, rimPlans()[0])
	assert.False(t, IsTargetWeighted(plans))
}

func TestClassify(t *testing.T) {
	s, err := Classify(rimPlans())
	require.NoError(t, err)
	assert.Equal(t, KindRim, s.Kind())
	assert.Equal(t, []string{"Gender", "Age"}, DimensionOrder(s))

	s, err = Classify(targetWeightedPlans())
	require.NoError(t, err)
	tw, ok := s.(TargetWeightedScheme)
	require.True(t, ok)
	assert.Equal(t, []string{"Gender", "Age"}, tw.Dimensions())
	assert.Equal(t, map[string]float64{"1:1": 0.1, "1:2": 0.4, "2:1": 0.2, "2:2": 0.3}, tw.Targets())

	s, err = Classify(wavePlans())
	require.NoError(t, err)
	ws, ok := s.(WaveScheme)
	require.True(t, ok)
	assert.Equal(t, "Wave", ws.Dimension())
	require.Len(t, ws.Waves(), 2)
	assert.Equal(t, KindRim, ws.Waves()[0].Scheme.Kind())
	assert.Equal(t, KindTargetWeighted, ws.Waves()[1].Scheme.Kind())
	w, ok := ws.Wave(11)
	assert.True(t, ok)
	assert.Equal(t, 11, w.EntityID)
	_, ok = ws.Wave(99)
	assert.False(t, ok)
	assert.Nil(t, DimensionOrder(ws))
}

func TestClassifyUnsupported(t *testing.T) {
	tests := map[string][]WeightingPlan{
		"empty": nil,
		"two nested plans": {
			{FilterMetricName: "Gender", Targets: []WeightingTarget{{FilterMetricEntityID: 1, Plans: rimPlans()}}},
			{FilterMetricName: "Age", Targets: []WeightingTarget{{FilterMetricEntityID: 1, Target: Float(1)}}},
		},
		"wave with unsupported wave": {{FilterMetricName: "Wave", IsWeightingGroupRoot: true, Targets: []WeightingTarget{
			{FilterMetricEntityID: 1},
		}}},
		"wave inside wave": {{FilterMetricName: "Wave", IsWeightingGroupRoot: true, Targets: []WeightingTarget{
			{FilterMetricEntityID: 1, Plans: wavePlans()},
		}}},
	}
	for name, plans := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Classify(plans)
			assert.True(t, errors.Is(err, ErrUnsupportedScheme), "got %v", err)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := wavePlans()
	cp := Clone(orig)
	*cp[0].Targets[0].Plans[0].Targets[0].Target = 0.9
	cp[0].Targets[1].Plans[0].FilterMetricName = "Changed"

	assert.Equal(t, 0.5, *orig[0].Targets[0].Plans[0].Targets[0].Target)
	assert.Equal(t, "Gender", orig[0].Targets[1].Plans[0].FilterMetricName)
	assert.Nil(t, Clone(nil))
}
