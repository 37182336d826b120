package api

import (
	"encoding/json"
	"net/http"

	"github.com/MikeSquared-Agency/Weighting/internal/quota"
	"github.com/MikeSquared-Agency/Weighting/internal/runner"
)

type RimHandler struct {
	runner *runner.Runner
}

func NewRimHandler(rn *runner.Runner) *RimHandler {
	return &RimHandler{runner: rn}
}

// CalculateRequest carries cells and population targets. Dimensions are
// raked in the order given.
type CalculateRequest struct {
	Cells          []quota.CellSample `json:"cells"`
	Dimensions     quota.Dimensions   `json:"dimensions"`
	IncludeDetails bool               `json:"include_details"`
}

func (h *RimHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, d := range req.Dimensions {
		if d.Name == "" {
			writeError(w, http.StatusBadRequest, "dimension name required")
			return
		}
	}
	for _, c := range req.Cells {
		if c.SampleSize < 0 {
			writeError(w, http.StatusBadRequest, "sample sizes must not be negative")
			return
		}
	}

	writeJSON(w, http.StatusOK, h.runner.Calculate(req.Cells, req.Dimensions, req.IncludeDetails))
}
