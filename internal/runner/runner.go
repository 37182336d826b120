// Package runner coordinates weighting work between the plan store, the
// weighting engines and the event bus.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Weighting/internal/generation"
	"github.com/MikeSquared-Agency/Weighting/internal/hermes"
	"github.com/MikeSquared-Agency/Weighting/internal/metrics"
	"github.com/MikeSquared-Agency/Weighting/internal/plan"
	"github.com/MikeSquared-Agency/Weighting/internal/quota"
	"github.com/MikeSquared-Agency/Weighting/internal/rim"
	"github.com/MikeSquared-Agency/Weighting/internal/store"
	"github.com/MikeSquared-Agency/Weighting/internal/weighting"
)

var (
	// ErrNotFound is returned when a subset or run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRunHasErrors blocks committing a run that reported errors.
	ErrRunHasErrors = errors.New("run reported errors")
)

type Runner struct {
	store     store.Store
	hermes    hermes.Client
	metrics   *metrics.Metrics
	calc      *rim.Calculator
	evaluator *weighting.Evaluator
	opts      rim.Options
	responses generation.ResponseSource
	logger    *slog.Logger
}

// New creates a Runner. h and m may be nil.
func New(s store.Store, h hermes.Client, m *metrics.Metrics, opts rim.Options, logger *slog.Logger) *Runner {
	calc := rim.NewCalculator(opts)
	return &Runner{
		store:     s,
		hermes:    h,
		metrics:   m,
		calc:      calc,
		evaluator: weighting.NewEvaluator(calc, logger),
		opts:      calc.Options(),
		logger:    logger,
	}
}

// WithResponseSource sets where reverse runs look up respondents for
// subsets the request does not carry.
func (r *Runner) WithResponseSource(src generation.ResponseSource) *Runner {
	r.responses = src
	return r
}

// Calculate rakes cells towards dims.
func (r *Runner) Calculate(cells []quota.CellSample, dims quota.Dimensions, includeDetails bool) rim.Result {
	result := r.calc.Calculate(cells, dims, includeDetails)
	r.metrics.ObserveCalculation(string(plan.KindRim), result)
	r.publish(hermes.SubjectCalculationCompleted, hermes.CalculationCompletedEvent{
		Cells:              len(cells),
		Converged:          result.Converged,
		IterationsRequired: result.IterationsRequired,
		EfficiencyScore:    result.EfficiencyScore,
		Timestamp:          time.Now().UTC(),
	})
	if !result.Converged && len(cells) > 0 {
		r.logger.Warn("raking did not converge", "cells", len(cells), "iterations", result.IterationsRequired)
	}
	return result
}

// Evaluate applies a subset's committed plans to cells.
func (r *Runner) Evaluate(ctx context.Context, subsetID string, cells []quota.CellSample, includeDetails bool) (*weighting.Evaluation, error) {
	sp, err := r.store.GetPlans(ctx, subsetID)
	if err != nil {
		return nil, fmt.Errorf("load plans for subset %s: %w", subsetID, err)
	}
	if sp == nil {
		return nil, fmt.Errorf("subset %s: %w", subsetID, ErrNotFound)
	}
	ev, err := r.evaluator.Evaluate(sp.Plans, cells, includeDetails)
	if err != nil {
		return nil, fmt.Errorf("subset %s: %w", subsetID, err)
	}
	for _, g := range ev.Groups {
		r.metrics.ObserveCalculation(string(ev.Scheme), g.Result)
	}
	return &ev, nil
}

// Commit validates plans and stores them as the subset's current plans.
func (r *Runner) Commit(ctx context.Context, subsetID string, plans []plan.WeightingPlan) (*store.SubsetPlans, error) {
	return r.commit(ctx, subsetID, plans, uuid.Nil)
}

func (r *Runner) commit(ctx context.Context, subsetID string, plans []plan.WeightingPlan, runID uuid.UUID) (*store.SubsetPlans, error) {
	scheme, err := plan.Classify(plans)
	if err != nil {
		return nil, fmt.Errorf("subset %s: %w", subsetID, err)
	}
	sp, err := r.store.SavePlans(ctx, subsetID, plans)
	if err != nil {
		return nil, fmt.Errorf("save plans for subset %s: %w", subsetID, err)
	}
	r.metrics.ObserveCommit()

	evt := hermes.SubsetCommittedEvent{
		SubsetID:  subsetID,
		Version:   sp.Version,
		Scheme:    string(scheme.Kind()),
		Timestamp: time.Now().UTC(),
	}
	if runID != uuid.Nil {
		evt.RunID = runID.String()
	}
	r.publish(hermes.SubjectSubsetCommitted(subsetID), evt)
	r.logger.Info("plans committed", "subset_id", subsetID, "version", sp.Version, "scheme", scheme.Kind())
	return sp, nil
}

// ReverseRequest asks for plans that reproduce Weights for the listed
// subsets. Keep names further subsets whose stored plans are carried into
// the run unchanged.
type ReverseRequest struct {
	SubsetIDs []string                         `json:"subset_ids"`
	Keep      []string                         `json:"keep,omitempty"`
	Responses map[string][]generation.Response `json:"responses"`
	Weights   map[int]float64                  `json:"weights"`
	Waves     map[int]int                      `json:"waves,omitempty"`
}

// Reverse runs reverse generation over stored plans and records the run.
// Nothing is committed.
func (r *Runner) Reverse(ctx context.Context, req ReverseRequest) (*store.ReverseRun, error) {
	if len(req.SubsetIDs) == 0 {
		return nil, errors.New("no subsets requested")
	}
	replace, err := r.loadPlans(ctx, req.SubsetIDs)
	if err != nil {
		return nil, err
	}
	keep, err := r.loadPlans(ctx, req.Keep)
	if err != nil {
		return nil, err
	}

	var waveOf generation.WaveFunc
	if len(req.Waves) > 0 {
		waveOf = func(_ string, resp generation.Response) (int, bool) {
			w, ok := req.Waves[resp.ResponseID]
			return w, ok
		}
	}
	src := responseSource{inline: req.Responses, fallback: r.responses}
	svc := generation.NewService(src, waveOf, r.opts, r.logger)
	result := svc.ReverseScaleFactors(ctx, keep, replace, req.Weights)
	outcome := r.metrics.ObserveReverse(result)

	ids := append([]string(nil), req.SubsetIDs...)
	sort.Strings(ids)
	run := &store.ReverseRun{
		ID:        uuid.New(),
		SubsetIDs: ids,
		Plans:     result.Plans,
		Warnings:  result.Warnings,
		Errors:    result.Errors,
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record reverse run: %w", err)
	}

	r.publish(hermes.SubjectReverseCompleted(run.ID.String()), hermes.ReverseCompletedEvent{
		RunID:     run.ID.String(),
		SubsetIDs: run.SubsetIDs,
		Warnings:  len(run.Warnings),
		Errors:    len(run.Errors),
		Fatal:     result.Fatal(),
		Timestamp: time.Now().UTC(),
	})
	r.logger.Info("reverse run completed",
		"run_id", run.ID,
		"subsets", len(run.SubsetIDs),
		"warnings", len(run.Warnings),
		"errors", len(run.Errors),
		"outcome", outcome,
	)
	return run, nil
}

// CommitRun commits the regenerated subsets of a reverse run. Runs that
// reported any error are refused, and nothing is saved unless every
// subset's plans classify.
func (r *Runner) CommitRun(ctx context.Context, runID uuid.UUID) ([]*store.SubsetPlans, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if len(run.Errors) > 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunHasErrors)
	}
	for _, id := range run.SubsetIDs {
		if _, err := plan.Classify(run.Plans[id]); err != nil {
			return nil, fmt.Errorf("run %s subset %s: %w", runID, id, err)
		}
	}

	out := make([]*store.SubsetPlans, 0, len(run.SubsetIDs))
	for _, id := range run.SubsetIDs {
		sp, err := r.commit(ctx, id, run.Plans[id], run.ID)
		if err != nil {
			return out, err
		}
		out = append(out, sp)
	}
	return out, nil
}

// SetupSubscriptions serves reverse requests arriving over NATS.
func (r *Runner) SetupSubscriptions() {
	if r.hermes == nil {
		return
	}
	_ = r.hermes.Subscribe(hermes.SubjectReverseRequest, func(_ string, data []byte) {
		var evt hermes.ReverseRequestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			r.logger.Warn("invalid reverse request event", "error", err)
			return
		}
		req := ReverseRequest{
			SubsetIDs: evt.SubsetIDs,
			Keep:      evt.Keep,
			Responses: evt.Responses,
			Weights:   evt.Weights,
			Waves:     evt.Waves,
		}
		if _, err := r.Reverse(context.Background(), req); err != nil {
			r.logger.Error("reverse request failed", "error", err)
		}
	})
}

func (r *Runner) loadPlans(ctx context.Context, ids []string) (map[string][]plan.WeightingPlan, error) {
	out := make(map[string][]plan.WeightingPlan, len(ids))
	for _, id := range ids {
		sp, err := r.store.GetPlans(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load plans for subset %s: %w", id, err)
		}
		if sp == nil {
			return nil, fmt.Errorf("subset %s: %w", id, ErrNotFound)
		}
		out[id] = sp.Plans
	}
	return out, nil
}

func (r *Runner) publish(subject string, data interface{}) {
	if r.hermes == nil {
		return
	}
	if err := r.hermes.Publish(subject, data); err != nil {
		r.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// responseSource serves inline respondents first and asks the fallback
// for subsets the request left out.
type responseSource struct {
	inline   map[string][]generation.Response
	fallback generation.ResponseSource
}

func (s responseSource) Responses(ctx context.Context, subsetID string) ([]generation.Response, error) {
	if rs, ok := s.inline[subsetID]; ok || s.fallback == nil {
		return rs, nil
	}
	return s.fallback.Responses(ctx, subsetID)
}
