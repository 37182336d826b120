package generation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Weighting/internal/quota"
)

// Response places one respondent in a quota cell for a subset.
type Response struct {
	ResponseID int        `json:"response_id"`
	Cell       quota.Cell `json:"cell"`
}

// ResponseSource supplies a subset's respondents and their quota cells.
type ResponseSource interface {
	Responses(ctx context.Context, subsetID string) ([]Response, error)
}

// StaticResponses serves responses already held in memory.
type StaticResponses map[string][]Response

func (s StaticResponses) Responses(_ context.Context, subsetID string) ([]Response, error) {
	return s[subsetID], nil
}

// WaveFunc resolves the wave a respondent belongs to, independently of
// the quota cell it was assigned. It reports false when no wave applies.
type WaveFunc func(subsetID string, r Response) (int, bool)

const maxListedIDs = 20

func formatIDs(ids []int) string {
	sort.Ints(ids)
	n := len(ids)
	if n > maxListedIDs {
		ids = ids[:maxListedIDs]
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	out := strings.Join(parts, ", ")
	if n > maxListedIDs {
		out += fmt.Sprintf(" and %d more", n-maxListedIDs)
	}
	return out
}
