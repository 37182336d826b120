package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
	"github.com/MikeSquared-Agency/Weighting/internal/quota"
	"github.com/MikeSquared-Agency/Weighting/internal/runner"
	"github.com/MikeSquared-Agency/Weighting/internal/store"
)

type PlansHandler struct {
	store  store.Store
	runner *runner.Runner
}

func NewPlansHandler(s store.Store, rn *runner.Runner) *PlansHandler {
	return &PlansHandler{store: s, runner: rn}
}

type ClassifyResponse struct {
	Scheme     plan.Kind `json:"scheme"`
	Dimensions []string  `json:"dimensions,omitempty"`
	Waves      []int     `json:"waves,omitempty"`
}

// Classify validates a plan document and reports how it would be applied.
func (h *PlansHandler) Classify(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	plans, err := plan.DecodeDocument(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scheme, err := plan.Classify(plans)
	if err != nil {
		writeRunnerError(w, err)
		return
	}

	resp := ClassifyResponse{Scheme: scheme.Kind(), Dimensions: plan.DimensionOrder(scheme)}
	if ws, ok := scheme.(plan.WaveScheme); ok {
		resp.Dimensions = []string{ws.Dimension()}
		for _, wave := range ws.Waves() {
			resp.Waves = append(resp.Waves, wave.EntityID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type SubsetSummary struct {
	SubsetID  string    `json:"subset_id"`
	Scheme    plan.Kind `json:"scheme,omitempty"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *PlansHandler) ListSubsets(w http.ResponseWriter, r *http.Request) {
	subsets, err := h.store.ListSubsets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]SubsetSummary, 0, len(subsets))
	for _, sp := range subsets {
		s := SubsetSummary{SubsetID: sp.SubsetID, Version: sp.Version, UpdatedAt: sp.UpdatedAt}
		if scheme, err := plan.Classify(sp.Plans); err == nil {
			s.Scheme = scheme.Kind()
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sp, err := h.store.GetPlans(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sp == nil {
		writeError(w, http.StatusNotFound, "subset not found")
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// PutPlansRequest commits plans for a subset. Errors carried over from a
// reverse run block the commit.
type PutPlansRequest struct {
	Plans  json.RawMessage `json:"plans"`
	Errors []string        `json:"errors,omitempty"`
}

func (h *PlansHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req PutPlansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Errors) > 0 {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":  "plans carry errors and cannot be committed",
			"errors": req.Errors,
		})
		return
	}
	plans, err := plan.DecodeDocument(req.Plans)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sp, err := h.runner.Commit(r.Context(), id, plans)
	if err != nil {
		writeRunnerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

type WeightsRequest struct {
	Cells          []quota.CellSample `json:"cells"`
	IncludeDetails bool               `json:"include_details"`
}

// Weights applies the subset's committed plans to the given cells.
func (h *PlansHandler) Weights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req WeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.runner.Evaluate(r.Context(), id, req.Cells, req.IncludeDetails)
	if err != nil {
		writeRunnerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
