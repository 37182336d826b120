package generation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Weighting/internal/rim"
)

type member struct {
	responseID int
	weight     float64
}

// cellWeights groups respondents by quota cell in the given dimension
// order and extracts each cell's single weight. Cells whose respondents
// disagree, or that carry no weight at all, are dropped with a warning.
func (b *batch) cellWeights(label string, dims []string, responses []Response) []rim.CellWeight {
	var order []string
	groups := make(map[string][]member)
	var incomplete []int

	for _, r := range responses {
		if r.Cell.IsUnweighted() {
			continue
		}
		key, ok := r.Cell.KeyFor(dims)
		if !ok {
			incomplete = append(incomplete, r.ResponseID)
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], member{responseID: r.ResponseID, weight: b.weights[r.ResponseID]})
	}
	if len(incomplete) > 0 {
		b.warnf("%s: %d responses are missing a weighting dimension and were ignored: %s",
			label, len(incomplete), formatIDs(incomplete))
	}

	var cells []rim.CellWeight
	for _, key := range order {
		members := groups[key]
		weight := members[0].weight
		consistent := true
		for _, m := range members[1:] {
			if m.weight != weight {
				consistent = false
				break
			}
		}
		switch {
		case !consistent:
			b.warnf("%s: quota cell %s was dropped because its respondents have different weights: %s",
				label, key, describeConflict(members))
		case weight == 0:
			b.warnf("%s: quota cell %s was dropped because none of its %d respondents has a weight",
				label, key, len(members))
		default:
			cells = append(cells, rim.CellWeight{Key: key, SampleSize: float64(len(members)), Weight: weight})
		}
	}
	return cells
}

// describeConflict lists respondents per distinct weight, e.g.
// "0.5 (101, 102); 1.5 (103)".
func describeConflict(members []member) string {
	byWeight := make(map[float64][]int)
	var weights []float64
	for _, m := range members {
		if _, ok := byWeight[m.weight]; !ok {
			weights = append(weights, m.weight)
		}
		byWeight[m.weight] = append(byWeight[m.weight], m.responseID)
	}
	sort.Float64s(weights)

	parts := make([]string, len(weights))
	for i, w := range weights {
		parts[i] = strconv.FormatFloat(w, 'g', -1, 64) + " (" + formatIDs(byWeight[w]) + ")"
	}
	return strings.Join(parts, "; ")
}
