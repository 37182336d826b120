package rim

import (
	"fmt"
)

const (
	// DefaultPointTolerance is the largest per-cell weight change between
	// two iterations that still counts as converged.
	DefaultPointTolerance = 0.00005
	// DefaultMaxIterations bounds the raking loop.
	DefaultMaxIterations = 50

	// DistributionBuckets and DistributionBucketWidth shape the weights
	// histogram.
	DistributionBuckets     = 50
	DistributionBucketWidth = 0.1
)

// Options configures the calculator. The same tolerance is handed to the
// generation service so both agree on what "normalized" means.
type Options struct {
	PointTolerance float64 `json:"point_tolerance" yaml:"point_tolerance"`
	MaxIterations  int     `json:"max_iterations" yaml:"max_iterations"`
}

// DefaultOptions returns the standard tolerance and iteration cap.
func DefaultOptions() Options {
	return Options{
		PointTolerance: DefaultPointTolerance,
		MaxIterations:  DefaultMaxIterations,
	}
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	if o.PointTolerance <= 0 {
		return fmt.Errorf("point tolerance must be positive, got %g", o.PointTolerance)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", o.MaxIterations)
	}
	return nil
}
