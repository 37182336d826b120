package quota

import (
	"encoding/json"
	"strings"
)

// PartSeparator joins category keys in a cell's canonical string form.
const PartSeparator = ":"

const unweightedKey = "Unweighted"

// Part is one dimension's category key inside a cell.
type Part struct {
	Dimension string `json:"dimension"`
	Key       string `json:"key"`
}

// Cell identifies one unique combination of category values across the
// weighting dimensions. Cells are immutable once built.
type Cell struct {
	parts      []Part
	unweighted bool
}

// NewCell builds a cell from ordered parts. The parts slice is copied.
func NewCell(parts ...Part) Cell {
	cp := make([]Part, len(parts))
	copy(cp, parts)
	return Cell{parts: cp}
}

// Unweighted returns the cell for respondents that did not qualify for
// weighting.
func Unweighted() Cell {
	return Cell{unweighted: true}
}

func (c Cell) IsUnweighted() bool { return c.unweighted }

// Parts returns a copy of the cell's ordered parts.
func (c Cell) Parts() []Part {
	cp := make([]Part, len(c.parts))
	copy(cp, c.parts)
	return cp
}

// Len returns the number of dimensions in the cell.
func (c Cell) Len() int { return len(c.parts) }

// Part returns the category key for a dimension.
func (c Cell) Part(dimension string) (string, bool) {
	for _, p := range c.parts {
		if p.Dimension == dimension {
			return p.Key, true
		}
	}
	return "", false
}

// String is the canonical serialization: category keys joined by
// PartSeparator in part order.
func (c Cell) String() string {
	if c.unweighted {
		return unweightedKey
	}
	keys := make([]string, len(c.parts))
	for i, p := range c.parts {
		keys[i] = p.Key
	}
	return strings.Join(keys, PartSeparator)
}

// Key is a map key that also encodes dimension names, so cells over
// different dimensions never collide.
func (c Cell) Key() string {
	if c.unweighted {
		return unweightedKey
	}
	var b strings.Builder
	for i, p := range c.parts {
		if i > 0 {
			b.WriteString(PartSeparator)
		}
		b.WriteString(p.Dimension)
		b.WriteByte('=')
		b.WriteString(p.Key)
	}
	return b.String()
}

// KeyFor renders the canonical string using the given dimension order.
// It reports false when the cell lacks any of the dimensions.
func (c Cell) KeyFor(dimensions []string) (string, bool) {
	if c.unweighted {
		return "", false
	}
	keys := make([]string, len(dimensions))
	for i, d := range dimensions {
		k, ok := c.Part(d)
		if !ok {
			return "", false
		}
		keys[i] = k
	}
	return strings.Join(keys, PartSeparator), true
}

// Without returns a new cell with the dimension removed.
func (c Cell) Without(dimension string) Cell {
	if c.unweighted {
		return c
	}
	parts := make([]Part, 0, len(c.parts))
	for _, p := range c.parts {
		if p.Dimension != dimension {
			parts = append(parts, p)
		}
	}
	return Cell{parts: parts}
}

// Equal reports whether two cells have the same parts in the same order.
func (c Cell) Equal(other Cell) bool {
	if c.unweighted || other.unweighted {
		return c.unweighted == other.unweighted
	}
	if len(c.parts) != len(other.parts) {
		return false
	}
	for i := range c.parts {
		if c.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// JoinKeys joins category keys with PartSeparator.
func JoinKeys(keys ...string) string {
	return strings.Join(keys, PartSeparator)
}

// CellSample pairs a cell with its observed sample size.
type CellSample struct {
	Cell       Cell    `json:"cell"`
	SampleSize float64 `json:"sample_size"`
}

type cellJSON struct {
	Parts      []Part `json:"parts,omitempty"`
	Unweighted bool   `json:"unweighted,omitempty"`
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(cellJSON{Parts: c.parts, Unweighted: c.unweighted})
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw cellJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Unweighted {
		*c = Unweighted()
		return nil
	}
	*c = NewCell(raw.Parts...)
	return nil
}
