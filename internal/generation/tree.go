package generation

import (
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
	"github.com/MikeSquared-Agency/Weighting/internal/quota"
)

type category struct {
	id    int
	order int
}

type dimensionInfo struct {
	order      int
	categories []category
}

// categoriesOf collects, per dimension, the categories the existing tree
// knows about in first-seen order.
func categoriesOf(plans []plan.WeightingPlan) map[string]*dimensionInfo {
	out := make(map[string]*dimensionInfo)
	var walk func([]plan.WeightingPlan)
	walk = func(ps []plan.WeightingPlan) {
		for _, p := range ps {
			info, ok := out[p.FilterMetricName]
			if !ok {
				info = &dimensionInfo{order: p.Order}
				out[p.FilterMetricName] = info
			}
			for _, t := range p.Targets {
				if !info.has(t.FilterMetricEntityID) {
					info.categories = append(info.categories, category{id: t.FilterMetricEntityID, order: t.Order})
				}
				walk(t.Plans)
			}
		}
	}
	walk(plans)
	return out
}

func (d *dimensionInfo) has(id int) bool {
	for _, c := range d.categories {
		if c.id == id {
			return true
		}
	}
	return false
}

// placeable reports whether every category in a cell key, read in dims
// order, is known to the tree for its dimension.
func placeable(dims []string, cats map[string]*dimensionInfo, key string) bool {
	parts := strings.Split(key, quota.PartSeparator)
	if len(parts) != len(dims) {
		return false
	}
	for i, d := range dims {
		info := cats[d]
		if info == nil {
			return false
		}
		id, err := strconv.Atoi(parts[i])
		if err != nil || !info.has(id) {
			return false
		}
	}
	return true
}

// buildTree nests one plan per dimension and puts each cell's target on
// the leaf reached by its full key. Branches without any target are left
// out. Keys must be placeable.
func buildTree(dims []string, cats map[string]*dimensionInfo, targets map[string]float64) []plan.WeightingPlan {
	if len(dims) == 0 {
		return []plan.WeightingPlan{}
	}
	tree := buildLevel(dims, cats, nil, targets)
	if tree == nil {
		tree = []plan.WeightingPlan{}
	}
	return tree
}

func buildLevel(dims []string, cats map[string]*dimensionInfo, prefix []string, targets map[string]float64) []plan.WeightingPlan {
	dim := dims[len(prefix)]
	info := cats[dim]
	if info == nil {
		return nil
	}
	leaf := len(prefix) == len(dims)-1

	p := plan.WeightingPlan{FilterMetricName: dim, Order: info.order}
	for _, c := range info.categories {
		path := append(prefix[:len(prefix):len(prefix)], strconv.Itoa(c.id))
		if leaf {
			key := quota.JoinKeys(path...)
			v, ok := targets[key]
			if !ok {
				continue
			}
			p.Targets = append(p.Targets, plan.WeightingTarget{
				FilterMetricEntityID: c.id,
				Target:               plan.Float(v),
				Order:                c.order,
			})
			continue
		}
		children := buildLevel(dims, cats, path, targets)
		if len(children) == 0 {
			continue
		}
		p.Targets = append(p.Targets, plan.WeightingTarget{
			FilterMetricEntityID: c.id,
			Plans:                children,
			Order:                c.order,
		})
	}
	if len(p.Targets) == 0 {
		return nil
	}
	return []plan.WeightingPlan{p}
}
