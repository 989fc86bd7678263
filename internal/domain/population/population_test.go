package population

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ehr/popgraph/pkg/semgraph"
)

func set(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestConcepts_FiltersByType(t *testing.T) {
	g := semgraph.New()
	g.AddNode("Patient/p1", semgraph.TypePatient, nil)
	g.AddNode("Observation/o1", semgraph.TypeObservation, nil)
	g.AddNode("Code/loinc|8310-5", semgraph.TypeCode, nil)
	g.AddNode("Finding/Fever", semgraph.TypeFinding, nil)

	c := Concepts(g, DefaultConceptTypes())
	if len(c) != 2 {
		t.Fatalf("expected 2 concepts, got %d: %v", len(c), c)
	}
	if _, ok := c["Code/loinc|8310-5"]; !ok {
		t.Fatal("expected code concept")
	}
	if _, ok := c["Finding/Fever"]; !ok {
		t.Fatal("expected finding concept")
	}
	if len(g.Nodes) != 4 {
		t.Fatal("extraction must not mutate the graph")
	}
}

func TestConcepts_CustomIncludeSet(t *testing.T) {
	g := semgraph.New()
	g.AddNode("Condition/c1", semgraph.TypeCondition, nil)
	g.AddNode("Finding/Fever", semgraph.TypeFinding, nil)

	c := Concepts(g, map[string]struct{}{semgraph.TypeCondition: {}})
	if len(c) != 1 {
		t.Fatalf("expected only condition, got %v", c)
	}
}

func TestAggregate_EndToEndExample(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("A", "B"))
	agg.Add(set("A", "B"))
	agg.Add(set("A"))

	if got := agg.Support("A"); got != 3 {
		t.Fatalf("support[A] = %d, want 3", got)
	}
	if got := agg.Support("B"); got != 2 {
		t.Fatalf("support[B] = %d, want 2", got)
	}
	if got := agg.PairWeight("A", "B"); got != 2 {
		t.Fatalf("pair_weight[A,B] = %d, want 2", got)
	}

	mg := agg.Build()
	if len(mg.Edges) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(mg.Edges))
	}
	e := mg.Edges[0]
	if e.Src != "A" || e.Dst != "B" || e.Weight != 2 || e.Rel != semgraph.RelCoOccursWith {
		t.Fatalf("unexpected edge: %+v", e)
	}
}

func TestAggregate_PairSymmetry(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("B", "A"))
	agg.Add(set("A", "B"))

	if got := agg.PairWeight("A", "B"); got != 2 {
		t.Fatalf("expected a single pair entry with weight 2, got %d", got)
	}
	if agg.PairWeight("B", "A") != agg.PairWeight("A", "B") {
		t.Fatal("pair weight must be order-insensitive")
	}
	if len(agg.Build().Edges) != 1 {
		t.Fatal("expected exactly one edge for the unordered pair")
	}
}

func TestAggregate_SupportBoundsPairWeight(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("A", "B", "C"))
	agg.Add(set("A", "B"))
	agg.Add(set("A", "C"))
	agg.Add(set("B"))

	for _, c := range []string{"A", "B", "C"} {
		for _, other := range []string{"A", "B", "C"} {
			if c == other {
				continue
			}
			if agg.Support(c) < agg.PairWeight(c, other) {
				t.Fatalf("support[%s]=%d < pair_weight[%s,%s]=%d",
					c, agg.Support(c), c, other, agg.PairWeight(c, other))
			}
		}
	}
}

func TestAggregate_EmptySetContributesNothing(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set())
	agg.Add(set("A"))

	mg := agg.Build()
	if len(mg.Nodes) != 1 || len(mg.Edges) != 0 {
		t.Fatalf("unexpected graph: %d nodes, %d edges", len(mg.Nodes), len(mg.Edges))
	}
	if agg.Records() != 2 {
		t.Fatalf("records = %d, want 2", agg.Records())
	}
}

func TestAggregate_SingletonSetHasNoPairs(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("A"))
	agg.Add(set("A"))

	if got := agg.Support("A"); got != 2 {
		t.Fatalf("support[A] = %d, want 2", got)
	}
	if len(agg.Build().Edges) != 0 {
		t.Fatal("singleton sets must not produce pairs")
	}
}

func TestBuild_EdgeOrderDeterministic(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("A", "B", "C", "D"))
	agg.Add(set("A", "B"))

	mg := agg.Build()
	if len(mg.Edges) != 6 {
		t.Fatalf("expected 6 edges, got %d", len(mg.Edges))
	}
	first := mg.Edges[0]
	if first.Src != "A" || first.Dst != "B" || first.Weight != 2 {
		t.Fatalf("heaviest edge must come first, got %+v", first)
	}
	for i := 1; i < len(mg.Edges); i++ {
		prev, cur := mg.Edges[i-1], mg.Edges[i]
		if prev.Weight < cur.Weight {
			t.Fatal("edges must be sorted by descending weight")
		}
		if prev.Weight == cur.Weight && (prev.Src > cur.Src || (prev.Src == cur.Src && prev.Dst > cur.Dst)) {
			t.Fatal("equal weights must be tie-broken by pair order")
		}
	}
}

func TestBuild_NodeShape(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("Finding/Fever"))

	mg := agg.Build()
	n, ok := mg.Nodes["Finding/Fever"]
	if !ok {
		t.Fatal("expected concept node")
	}
	if n.Type != semgraph.TypeConcept || n.Props.Support != 1 {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestWriteJSON_Shape(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("A", "B"))

	var buf bytes.Buffer
	if err := agg.Build().WriteJSON(&buf); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var out struct {
		Nodes map[string]struct {
			ID    string `json:"id"`
			Type  string `json:"type"`
			Props struct {
				Support int `json:"support"`
			} `json:"props"`
		} `json:"nodes"`
		Edges []struct {
			Src    string `json:"src"`
			Dst    string `json:"dst"`
			Rel    string `json:"rel"`
			Weight int    `json:"weight"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Nodes["A"].Props.Support != 1 || out.Nodes["A"].Type != "Concept" {
		t.Fatalf("unexpected nodes: %+v", out.Nodes)
	}
	if len(out.Edges) != 1 || out.Edges[0].Rel != "CO_OCCURS_WITH" || out.Edges[0].Weight != 1 {
		t.Fatalf("unexpected edges: %+v", out.Edges)
	}
}

func TestWriteCSV_MatchesEdgeOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Add(set("A", "B", "C"))
	agg.Add(set("A", "B"))

	mg := agg.Build()
	var buf bytes.Buffer
	if err := mg.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "source,target,weight" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines) != len(mg.Edges)+1 {
		t.Fatalf("expected %d rows, got %d", len(mg.Edges)+1, len(lines)-1)
	}
	if lines[1] != "A,B,2" {
		t.Fatalf("first row must match heaviest edge, got %q", lines[1])
	}
}
