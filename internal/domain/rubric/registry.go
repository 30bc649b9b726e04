package rubric

import (
	"fmt"
	"sort"
)

// Provider returns the question table for a rubric version.
type Provider interface {
	// Rubric returns the table for v or ErrUnknownVersion.
	Rubric(v Version) (*Rubric, error)
	// Versions lists every known version in ascending order.
	Versions() []Version
}

// Registry is an in-memory Provider. It is immutable after construction and
// safe for concurrent use.
type Registry struct {
	rubrics map[Version]*Rubric
	order   []Version
}

// NewRegistry builds a Registry. Duplicate versions are rejected.
func NewRegistry(rubrics ...*Rubric) (*Registry, error) {
	reg := &Registry{rubrics: make(map[Version]*Rubric, len(rubrics))}
	for _, r := range rubrics {
		if r == nil {
			continue
		}
		if _, dup := reg.rubrics[r.Version()]; dup {
			return nil, fmt.Errorf("%w: duplicate version %s", ErrInvalidRubric, r.Version())
		}
		reg.rubrics[r.Version()] = r
		reg.order = append(reg.order, r.Version())
	}
	sort.Slice(reg.order, func(i, j int) bool { return reg.order[i] < reg.order[j] })
	return reg, nil
}

// Rubric implements Provider.
func (g *Registry) Rubric(v Version) (*Rubric, error) {
	r, ok := g.rubrics[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, v)
	}
	return r, nil
}

// Versions implements Provider.
func (g *Registry) Versions() []Version {
	return append([]Version(nil), g.order...)
}

// Merge returns a Registry holding the rubrics of g overlaid by other.
// Versions present in both take other's table.
func (g *Registry) Merge(other *Registry) *Registry {
	out := &Registry{rubrics: make(map[Version]*Rubric, len(g.rubrics))}
	for v, r := range g.rubrics {
		out.rubrics[v] = r
	}
	if other != nil {
		for v, r := range other.rubrics {
			out.rubrics[v] = r
		}
	}
	for v := range out.rubrics {
		out.order = append(out.order, v)
	}
	sort.Slice(out.order, func(i, j int) bool { return out.order[i] < out.order[j] })
	return out
}
