//go:build integration

package store

import (
	"context"
	"os"
	"testing"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	_, _ = s.pool.Exec(ctx, "TRUNCATE weighting_plans, weighting_reverse_runs")

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE weighting_plans, weighting_reverse_runs")
		s.Close()
	})

	return s
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, setupTestDB(t))
}
