package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
)

// SubsetPlans is the committed plan collection of one subset. Version
// starts at 1 and increases on every save.
type SubsetPlans struct {
	SubsetID  string               `json:"subset_id"`
	Plans     []plan.WeightingPlan `json:"plans"`
	Version   int                  `json:"version"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ReverseRun records one reverse generation batch so its output can be
// reviewed before the plans are committed.
type ReverseRun struct {
	ID        uuid.UUID                       `json:"run_id"`
	SubsetIDs []string                        `json:"subset_ids"`
	Plans     map[string][]plan.WeightingPlan `json:"plans"`
	Warnings  []string                        `json:"warnings,omitempty"`
	Errors    []string                        `json:"errors,omitempty"`
	CreatedAt time.Time                       `json:"created_at"`
}

// Store persists committed plans and reverse runs. Getters return nil, nil
// when nothing is found.
type Store interface {
	GetPlans(ctx context.Context, subsetID string) (*SubsetPlans, error)
	SavePlans(ctx context.Context, subsetID string, plans []plan.WeightingPlan) (*SubsetPlans, error)
	ListSubsets(ctx context.Context) ([]*SubsetPlans, error)

	CreateRun(ctx context.Context, run *ReverseRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*ReverseRun, error)

	Close() error
}
