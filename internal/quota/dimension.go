package quota

import (
	"sort"
	"strconv"
)

// CategoryTarget is one category's target within a dimension. During
// calculation the target is a population count; during generation it is a
// proportion.
type CategoryTarget struct {
	CategoryID int     `json:"category_id"`
	Target     float64 `json:"target"`
}

// Key is the category id in the string form used by cell parts.
func (t CategoryTarget) Key() string { return strconv.Itoa(t.CategoryID) }

// Dimension is one weighting axis and its target distribution.
type Dimension struct {
	Name    string           `json:"name"`
	Targets []CategoryTarget `json:"targets"`
}

// Dimensions are processed in declaration order.
type Dimensions []Dimension

// Total sums every target in the dimension.
func (d Dimension) Total() float64 {
	var sum float64
	for _, t := range d.Targets {
		sum += t.Target
	}
	return sum
}

// DimensionsFromMap converts the unordered map form into Dimensions,
// sorting dimension names and category ids so the result is reproducible.
func DimensionsFromMap(m map[string]map[int]float64) Dimensions {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	dims := make(Dimensions, 0, len(names))
	for _, name := range names {
		cats := m[name]
		ids := make([]int, 0, len(cats))
		for id := range cats {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		d := Dimension{Name: name, Targets: make([]CategoryTarget, 0, len(ids))}
		for _, id := range ids {
			d.Targets = append(d.Targets, CategoryTarget{CategoryID: id, Target: cats[id]})
		}
		dims = append(dims, d)
	}
	return dims
}
