package population

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

// MetaGraph is the population-level aggregate graph.
type MetaGraph struct {
	Nodes map[string]MetaNode `json:"nodes"`
	Edges []MetaEdge          `json:"edges"`
}

// MetaNode is one concept with its record support.
type MetaNode struct {
	ID    string    `json:"id"`
	Type  string    `json:"type"`
	Props MetaProps `json:"props"`
}

// MetaProps carries the support count.
type MetaProps struct {
	Support int `json:"support"`
}

// MetaEdge is a weighted co-occurrence between two concepts.
type MetaEdge struct {
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Rel    string `json:"rel"`
	Weight int    `json:"weight"`
}

// WriteJSON writes the aggregate graph as indented JSON.
func (mg *MetaGraph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mg)
}

// WriteCSV writes one source,target,weight row per edge, in the same
// order as the JSON edge list.
func (mg *MetaGraph) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "target", "weight"}); err != nil {
		return err
	}
	for _, e := range mg.Edges {
		if err := cw.Write([]string{e.Src, e.Dst, strconv.Itoa(e.Weight)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
