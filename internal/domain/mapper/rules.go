package mapper

import (
	"strconv"
	"strings"

	"github.com/ehr/popgraph/pkg/fhirmodels"
	"github.com/ehr/popgraph/pkg/semgraph"
)

// Rule derives a clinical finding from observations carrying a specific
// coding. When an observation linked to (System, Code) has a leading
// numeric value satisfying the comparison, a Finding/<Label> node is
// merged into the graph and linked to the observation's subject. Rules are
// plain data so new vital-sign thresholds can be registered without
// touching the mapper.
type Rule struct {
	System     string
	Code       string
	Comparator string // ">" or "<"; empty means ">"
	Threshold  float64
	Label      string
}

func (r Rule) satisfied(v float64) bool {
	switch r.Comparator {
	case "<":
		return v < r.Threshold
	default:
		return v > r.Threshold
	}
}

// DefaultRules returns the built-in vital-sign rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			System:    fhirmodels.SystemLOINC,
			Code:      fhirmodels.LOINCBodyTemperature,
			Threshold: 38.0,
			Label:     "Fever",
		},
		{
			System:    fhirmodels.SystemLOINC,
			Code:      fhirmodels.LOINCHeartRate,
			Threshold: 100,
			Label:     "Tachycardia",
		},
	}
}

// derive runs every registered rule over the ingested graph. For each
// HAS_CODE edge whose target matches a rule's system+code and whose source
// is an Observation, the observation's value summary is parsed and, when
// the threshold condition holds, a Finding node is merged and attached to
// the observation's subject. Candidates with unparseable values, and
// observations without a subject edge, are skipped without error.
func (m *Mapper) derive(g *semgraph.Graph) {
	edges := g.Edges
	for _, r := range m.rules {
		for _, e := range edges {
			if e.Rel != semgraph.RelHasCode {
				continue
			}
			code := g.Node(e.Dst)
			if code == nil || code.Type != semgraph.TypeCode {
				continue
			}
			if code.Props["system"] != r.System || code.Props["code"] != r.Code {
				continue
			}
			obs := g.Node(e.Src)
			if obs == nil || obs.Type != semgraph.TypeObservation {
				continue
			}
			v, ok := leadingNumber(obs.Props["value"])
			if !ok || !r.satisfied(v) {
				continue
			}

			findingID := "Finding/" + r.Label
			g.AddNode(findingID, semgraph.TypeFinding, semgraph.Props{"label": r.Label})
			if subj, ok := g.FirstTarget(obs.ID, semgraph.RelHasSubject); ok {
				g.AddEdge(subj, findingID, semgraph.RelHasFinding)
			}
		}
	}
}

// leadingNumber parses the first whitespace-separated token of a value
// summary (e.g. "38.6 Celsius") as a float.
func leadingNumber(v interface{}) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
