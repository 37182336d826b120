package rim

import (
	"fmt"
	"math"
)

// CellWeight is a cell's sample count and the weight applied to it.
type CellWeight struct {
	Key        string
	SampleSize float64
	Weight     float64
}

// TargetProportions converts per-cell weights into target proportions that
// sum to 1. A sum outside tolerance is rescaled and reported; a sum that
// still misses after rescaling gets a second warning.
func TargetProportions(cells []CellWeight, tolerance float64) (map[string]float64, []string) {
	out := make(map[string]float64, len(cells))
	var warnings []string

	var total float64
	for _, c := range cells {
		total += c.SampleSize
	}
	if total == 0 {
		for _, c := range cells {
			out[c.Key] = 0
		}
		return out, []string{"Targets could not be normalized: total sample size is zero"}
	}

	var sum float64
	for _, c := range cells {
		p := c.SampleSize * c.Weight / total
		out[c.Key] = p
		sum += p
	}
	if math.Abs(sum-1) <= tolerance {
		return out, nil
	}

	warnings = append(warnings, fmt.Sprintf("Targets summed to %.6f and were rescaled to 1", sum))
	if sum != 0 && !math.IsNaN(sum) && !math.IsInf(sum, 0) {
		rescaled := 0.0
		for k, p := range out {
			out[k] = p / sum
			rescaled += out[k]
		}
		sum = rescaled
	}
	if math.Abs(sum-1) > tolerance || math.IsNaN(sum) {
		warnings = append(warnings, fmt.Sprintf("Targets could not be normalized within tolerance %g (sum %.6f)", tolerance, sum))
	}
	return out, warnings
}
