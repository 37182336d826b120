// Package weightsfile reads externally produced respondent weights.
package weightsfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	responseIDColumn = "responseid"
	weightColumn     = "weight"
)

// Parse reads a CSV with a ResponseId,Weight header (any case, any column
// order, extra columns ignored). Rows with a blank weight are skipped.
// All malformed rows are reported together.
func Parse(r io.Reader) (map[int]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("weights file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read weights header: %w", err)
	}
	idCol, weightCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case responseIDColumn:
			idCol = i
		case weightColumn:
			weightCol = i
		}
	}
	if idCol < 0 || weightCol < 0 {
		return nil, fmt.Errorf("weights header must contain ResponseId and Weight columns, got %q", strings.Join(header, ","))
	}

	weights := make(map[int]float64)
	var errs []error
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) <= idCol || len(rec) <= weightCol {
			errs = append(errs, fmt.Errorf("line %d: expected at least %d columns", line, max(idCol, weightCol)+1))
			continue
		}
		raw := strings.TrimSpace(rec[weightCol])
		if raw == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[idCol]))
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: invalid response id %q", line, rec[idCol]))
			continue
		}
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: invalid weight %q for response %d", line, raw, id))
			continue
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, fmt.Errorf("line %d: weight %q for response %d must be a finite non-negative number", line, raw, id))
			continue
		}
		if _, dup := weights[id]; dup {
			errs = append(errs, fmt.Errorf("line %d: duplicate response id %d", line, id))
			continue
		}
		weights[id] = w
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid weights file: %w", errors.Join(errs...))
	}
	return weights, nil
}
