package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
)

// SQLiteStore keeps plans and runs as JSON blobs in a single file. Times
// are stored as unix nanoseconds.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "weighting.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS weighting_plans (
			subset_id  TEXT PRIMARY KEY,
			plans      BLOB NOT NULL,
			version    INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weighting_reverse_runs (
			run_id     TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) GetPlans(ctx context.Context, subsetID string) (*SubsetPlans, error) {
	sp := &SubsetPlans{SubsetID: subsetID}
	var payload []byte
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT plans, version, updated_at FROM weighting_plans WHERE subset_id = ?`, subsetID,
	).Scan(&payload, &sp.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select plans: %w", err)
	}
	if err := json.Unmarshal(payload, &sp.Plans); err != nil {
		return nil, fmt.Errorf("decode plans for subset %s: %w", subsetID, err)
	}
	sp.UpdatedAt = time.Unix(0, updated).UTC()
	return sp, nil
}

func (s *SQLiteStore) SavePlans(ctx context.Context, subsetID string, plans []plan.WeightingPlan) (*SubsetPlans, error) {
	payload, err := json.Marshal(plans)
	if err != nil {
		return nil, fmt.Errorf("encode plans: %w", err)
	}
	now := time.Now().UTC()
	sp := &SubsetPlans{SubsetID: subsetID, Plans: plan.Clone(plans), UpdatedAt: now}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO weighting_plans (subset_id, plans, version, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(subset_id) DO UPDATE SET
			plans = excluded.plans,
			version = weighting_plans.version + 1,
			updated_at = excluded.updated_at
		RETURNING version`,
		subsetID, payload, now.UnixNano(),
	).Scan(&sp.Version)
	if err != nil {
		return nil, fmt.Errorf("upsert plans: %w", err)
	}
	return sp, nil
}

func (s *SQLiteStore) ListSubsets(ctx context.Context) ([]*SubsetPlans, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subset_id, plans, version, updated_at FROM weighting_plans ORDER BY subset_id`)
	if err != nil {
		return nil, fmt.Errorf("select plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*SubsetPlans
	for rows.Next() {
		sp := &SubsetPlans{}
		var payload []byte
		var updated int64
		if err := rows.Scan(&sp.SubsetID, &payload, &sp.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(payload, &sp.Plans); err != nil {
			return nil, fmt.Errorf("decode plans for subset %s: %w", sp.SubsetID, err)
		}
		sp.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *ReverseRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO weighting_reverse_runs (run_id, payload, created_at) VALUES (?, ?, ?)`,
		run.ID.String(), payload, run.CreatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*ReverseRun, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM weighting_reverse_runs WHERE run_id = ?`, id.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	run := &ReverseRun{}
	if err := json.Unmarshal(payload, run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return run, nil
}
