package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
)

func samplePlans(target float64) []plan.WeightingPlan {
	return []plan.WeightingPlan{{
		FilterMetricName: "Gender",
		Targets: []plan.WeightingTarget{
			{FilterMetricEntityID: 1, Target: plan.Float(target), Order: 1},
			{FilterMetricEntityID: 2, Target: plan.Float(1 - target), Order: 2},
		},
	}}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing subset", func(t *testing.T) {
		got, err := s.GetPlans(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save bumps version", func(t *testing.T) {
		first, err := s.SavePlans(ctx, "s1", samplePlans(0.6))
		require.NoError(t, err)
		assert.Equal(t, 1, first.Version)

		second, err := s.SavePlans(ctx, "s1", samplePlans(0.4))
		require.NoError(t, err)
		assert.Equal(t, 2, second.Version)

		got, err := s.GetPlans(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, samplePlans(0.4), got.Plans)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("list is ordered", func(t *testing.T) {
		_, err := s.SavePlans(ctx, "s0", samplePlans(0.5))
		require.NoError(t, err)
		list, err := s.ListSubsets(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "s0", list[0].SubsetID)
		assert.Equal(t, "s1", list[1].SubsetID)
	})

	t.Run("runs", func(t *testing.T) {
		run := &ReverseRun{
			SubsetIDs: []string{"s1"},
			Plans:     map[string][]plan.WeightingPlan{"s1": samplePlans(0.7)},
			Warnings:  []string{"something odd"},
		}
		require.NoError(t, s.CreateRun(ctx, run))
		assert.NotEqual(t, uuid.Nil, run.ID)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, run.SubsetIDs, got.SubsetIDs)
		assert.Equal(t, run.Plans, got.Plans)
		assert.Equal(t, run.Warnings, got.Warnings)
		assert.Empty(t, got.Errors)

		missing, err := s.GetRun(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plans := samplePlans(0.6)
	_, err := s.SavePlans(ctx, "s1", plans)
	require.NoError(t, err)

	*plans[0].Targets[0].Target = 0.9
	got, err := s.GetPlans(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, *got.Plans[0].Targets[0].Target)

	*got.Plans[0].Targets[0].Target = 0.1
	again, err := s.GetPlans(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, *again.Plans[0].Targets[0].Target)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "weighting.db")
	s, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Equal(t, path, s.Path())

	exerciseStore(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "weighting.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	_, err = s.SavePlans(ctx, "s1", samplePlans(0.25))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetPlans(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, samplePlans(0.25), got.Plans)
}
