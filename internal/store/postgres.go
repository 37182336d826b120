package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS weighting_plans (
	subset_id  TEXT PRIMARY KEY,
	plans      JSONB NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS weighting_reverse_runs (
	run_id     UUID PRIMARY KEY,
	subset_ids TEXT[] NOT NULL,
	plans      JSONB NOT NULL,
	warnings   JSONB,
	errors     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetPlans(ctx context.Context, subsetID string) (*SubsetPlans, error) {
	sp := &SubsetPlans{SubsetID: subsetID}
	var plansJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT plans, version, updated_at
		FROM weighting_plans WHERE subset_id = $1`, subsetID,
	).Scan(&plansJSON, &sp.Version, &sp.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plansJSON, &sp.Plans); err != nil {
		return nil, fmt.Errorf("decode plans for subset %s: %w", subsetID, err)
	}
	return sp, nil
}

func (s *PostgresStore) SavePlans(ctx context.Context, subsetID string, plans []plan.WeightingPlan) (*SubsetPlans, error) {
	plansJSON, err := json.Marshal(plans)
	if err != nil {
		return nil, fmt.Errorf("encode plans: %w", err)
	}
	sp := &SubsetPlans{SubsetID: subsetID, Plans: plan.Clone(plans)}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO weighting_plans (subset_id, plans)
		VALUES ($1, $2)
		ON CONFLICT (subset_id) DO UPDATE SET
			plans = EXCLUDED.plans,
			version = weighting_plans.version + 1,
			updated_at = now()
		RETURNING version, updated_at`,
		subsetID, plansJSON,
	).Scan(&sp.Version, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *PostgresStore) ListSubsets(ctx context.Context) ([]*SubsetPlans, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subset_id, plans, version, updated_at
		FROM weighting_plans ORDER BY subset_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SubsetPlans
	for rows.Next() {
		sp := &SubsetPlans{}
		var plansJSON []byte
		if err := rows.Scan(&sp.SubsetID, &plansJSON, &sp.Version, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(plansJSON, &sp.Plans); err != nil {
			return nil, fmt.Errorf("decode plans for subset %s: %w", sp.SubsetID, err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *ReverseRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	plansJSON, err := json.Marshal(run.Plans)
	if err != nil {
		return fmt.Errorf("encode run plans: %w", err)
	}
	warningsJSON, _ := json.Marshal(run.Warnings)
	errorsJSON, _ := json.Marshal(run.Errors)

	return s.pool.QueryRow(ctx, `
		INSERT INTO weighting_reverse_runs (run_id, subset_ids, plans, warnings, errors)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		run.ID, run.SubsetIDs, plansJSON, warningsJSON, errorsJSON,
	).Scan(&run.CreatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*ReverseRun, error) {
	run := &ReverseRun{}
	var plansJSON, warningsJSON, errorsJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, subset_ids, plans, warnings, errors, created_at
		FROM weighting_reverse_runs WHERE run_id = $1`, id,
	).Scan(&run.ID, &run.SubsetIDs, &plansJSON, &warningsJSON, &errorsJSON, &run.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plansJSON, &run.Plans); err != nil {
		return nil, fmt.Errorf("decode run plans: %w", err)
	}
	if warningsJSON != nil {
		_ = json.Unmarshal(warningsJSON, &run.Warnings)
	}
	if errorsJSON != nil {
		_ = json.Unmarshal(errorsJSON, &run.Errors)
	}
	return run, nil
}
