package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Weighting/internal/generation"
	"github.com/MikeSquared-Agency/Weighting/internal/runner"
	"github.com/MikeSquared-Agency/Weighting/internal/store"
	"github.com/MikeSquared-Agency/Weighting/internal/weightsfile"
)

type ReverseHandler struct {
	store  store.Store
	runner *runner.Runner
}

func NewReverseHandler(s store.Store, rn *runner.Runner) *ReverseHandler {
	return &ReverseHandler{store: s, runner: rn}
}

// CreateReverseRequest carries respondents per subset and the external
// weights as the CSV file the weighting tool exported.
type CreateReverseRequest struct {
	SubsetIDs  []string                         `json:"subset_ids"`
	Keep       []string                         `json:"keep,omitempty"`
	Responses  map[string][]generation.Response `json:"responses"`
	WeightsCSV string                           `json:"weights_csv"`
	Waves      map[int]int                      `json:"waves,omitempty"`
}

func (h *ReverseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.SubsetIDs) == 0 {
		writeError(w, http.StatusBadRequest, "subset_ids required")
		return
	}
	weights, err := weightsfile.Parse(strings.NewReader(req.WeightsCSV))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.runner.Reverse(r.Context(), runner.ReverseRequest{
		SubsetIDs: req.SubsetIDs,
		Keep:      req.Keep,
		Responses: req.Responses,
		Weights:   weights,
		Waves:     req.Waves,
	})
	if err != nil {
		writeRunnerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *ReverseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Commit stores every regenerated subset of a run that reported no errors.
func (h *ReverseHandler) Commit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	committed, err := h.runner.CommitRun(r.Context(), id)
	if err != nil {
		writeRunnerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, committed)
}
