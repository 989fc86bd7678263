// Package population turns per-record semantic graphs into a
// population-level co-occurrence graph. Each record contributes the set of
// concept node ids found in its graph; the aggregator counts per-concept
// support and pairwise co-occurrence across all records.
package population

import (
	"sort"

	"github.com/ehr/popgraph/pkg/semgraph"
)

// DefaultConceptTypes returns the node types treated as concepts: derived
// findings and coded observations.
func DefaultConceptTypes() map[string]struct{} {
	return map[string]struct{}{
		semgraph.TypeFinding: {},
		semgraph.TypeCode:    {},
	}
}

// Concepts returns the ids of every node in g whose type is in include.
// It is a pure filter; g is not mutated.
func Concepts(g *semgraph.Graph, include map[string]struct{}) map[string]struct{} {
	concepts := make(map[string]struct{})
	for id, n := range g.Nodes {
		if _, ok := include[n.Type]; ok {
			concepts[id] = struct{}{}
		}
	}
	return concepts
}

// pair is an unordered concept pair stored in its lexicographic order, so
// {a,b} and {b,a} count against the same key.
type pair struct {
	a, b string
}

// Aggregator accumulates concept sets, one per record. It owns the support
// and co-occurrence counters exclusively; records may be added in any
// order without changing the result.
type Aggregator struct {
	support map[string]int
	pairs   map[pair]int
	records int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		support: make(map[string]int),
		pairs:   make(map[pair]int),
	}
}

// Add accumulates one record's concept set: every concept's support is
// incremented, and every unordered pair of distinct concepts is counted
// exactly once regardless of the set's iteration order. Empty sets
// contribute nothing.
func (a *Aggregator) Add(concepts map[string]struct{}) {
	a.records++
	ids := make([]string, 0, len(concepts))
	for id := range concepts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		a.support[id]++
		for _, other := range ids[i+1:] {
			a.pairs[pair{id, other}]++
		}
	}
}

// Records returns how many concept sets have been added.
func (a *Aggregator) Records() int {
	return a.records
}

// Support returns the support count for a concept id.
func (a *Aggregator) Support(id string) int {
	return a.support[id]
}

// PairWeight returns the co-occurrence count for two concepts, in either
// argument order.
func (a *Aggregator) PairWeight(x, y string) int {
	if x > y {
		x, y = y, x
	}
	return a.pairs[pair{x, y}]
}

// Build emits the aggregate graph: one Concept node per supported id, and
// one CO_OCCURS_WITH edge per co-occurring pair, sorted by descending
// weight with ties broken by the pair's natural order. Zero-weight entries
// are filtered; they cannot occur by construction, the filter is a safety
// invariant.
func (a *Aggregator) Build() *MetaGraph {
	mg := &MetaGraph{Nodes: make(map[string]MetaNode, len(a.support)), Edges: []MetaEdge{}}
	for id, count := range a.support {
		mg.Nodes[id] = MetaNode{
			ID:    id,
			Type:  semgraph.TypeConcept,
			Props: MetaProps{Support: count},
		}
	}

	for p, w := range a.pairs {
		if w <= 0 {
			continue
		}
		mg.Edges = append(mg.Edges, MetaEdge{
			Src:    p.a,
			Dst:    p.b,
			Rel:    semgraph.RelCoOccursWith,
			Weight: w,
		})
	}
	sort.Slice(mg.Edges, func(i, j int) bool {
		ei, ej := mg.Edges[i], mg.Edges[j]
		if ei.Weight != ej.Weight {
			return ei.Weight > ej.Weight
		}
		if ei.Src != ej.Src {
			return ei.Src < ej.Src
		}
		return ei.Dst < ej.Dst
	})
	return mg
}
