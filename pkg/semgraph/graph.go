// Package semgraph provides a small in-memory property graph used to
// represent the clinical content of a single record. Nodes are keyed by a
// globally unique id (conventionally "<Type>/<local-id>"), edges form an
// append-only sequence and hold ids rather than node references, so edges
// may point at nodes that are added later or never added at all.
package semgraph

import "encoding/json"

// Node type tags for the resource kinds the mapper understands. Anything
// else is inserted under its raw resourceType.
const (
	TypePatient             = "Patient"
	TypeObservation         = "Observation"
	TypeEncounter           = "Encounter"
	TypeCondition           = "Condition"
	TypeMedicationStatement = "MedicationStatement"
	TypeCode                = "Code"
	TypeFinding             = "Finding"
	TypeConcept             = "Concept"
	TypeUnknown             = "Unknown"
)

// Relationship labels.
const (
	RelHasSubject   = "HAS_SUBJECT"
	RelHasCode      = "HAS_CODE"
	RelHasFinding   = "HAS_FINDING"
	RelCoOccursWith = "CO_OCCURS_WITH"
)

// Props holds a node's property bag.
type Props map[string]interface{}

// Node is a typed, identified vertex in the graph.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Props Props  `json:"props"`
}

// Edge is a directed, labeled connection between two node ids. Duplicate
// edges are permitted and order is insertion order.
type Edge struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
	Rel string `json:"rel"`
}

// Graph owns an id-keyed node map and an ordered edge list.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []Edge           `json:"edges"`
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a node, or merges props into an existing node with the
// same id. Merging is last-write-wins per key; nil values never overwrite
// a previously set property. The returned node is the stored instance.
func (g *Graph) AddNode(id, typ string, props Props) *Node {
	if n, ok := g.Nodes[id]; ok {
		for k, v := range props {
			if v != nil {
				n.Props[k] = v
			}
		}
		return n
	}
	n := &Node{ID: id, Type: typ, Props: Props{}}
	for k, v := range props {
		if v != nil {
			n.Props[k] = v
		}
	}
	g.Nodes[id] = n
	return n
}

// AddEdge appends an edge. Neither endpoint needs to exist.
func (g *Graph) AddEdge(src, dst, rel string) {
	g.Edges = append(g.Edges, Edge{Src: src, Dst: dst, Rel: rel})
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// FirstTarget returns the destination of the first edge (in insertion
// order) with the given source and relationship label.
func (g *Graph) FirstTarget(src, rel string) (string, bool) {
	for _, e := range g.Edges {
		if e.Src == src && e.Rel == rel {
			return e.Dst, true
		}
	}
	return "", false
}

// MarshalJSON emits the portable graph shape: a nodes object keyed by id
// and an edges array in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	type alias Graph
	out := alias(*g)
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return json.Marshal(out)
}
