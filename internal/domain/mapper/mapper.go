// Package mapper converts a single FHIR Bundle into a per-record semantic
// graph and runs rule-based derivation over the result. Mapping is a pure
// function of the input document: the same bundle always yields the same
// node set and edge sequence.
package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ehr/popgraph/internal/platform/fhir"
	"github.com/ehr/popgraph/pkg/semgraph"
)

// FormatError reports a document whose root is not a FHIR Bundle. It is
// fatal for the whole run: a wrong container type means the input pipeline
// is misconfigured, not that one record is anomalous.
type FormatError struct {
	ResourceType string
}

func (e *FormatError) Error() string {
	if e.ResourceType == "" {
		return "document has no resourceType, expected a FHIR Bundle"
	}
	return fmt.Sprintf("document root is %q, expected a FHIR Bundle", e.ResourceType)
}

// Mapper maps bundles to graphs using a registered set of derivation
// rules.
type Mapper struct {
	rules []Rule
}

// NewMapper returns a mapper with the given derivation rules. A nil slice
// selects DefaultRules; an empty non-nil slice disables derivation.
func NewMapper(rules []Rule) *Mapper {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Mapper{rules: rules}
}

// Register appends a derivation rule.
func (m *Mapper) Register(r Rule) {
	m.rules = append(m.rules, r)
}

// Map parses a bundle document, ingests every contained resource into a
// fresh graph and runs the derivation pass. It fails with *FormatError if
// the root resource is not a Bundle.
func (m *Mapper) Map(doc []byte) (*semgraph.Graph, error) {
	b, err := fhir.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return m.MapBundle(b)
}

// MapBundle maps an already-decoded bundle.
func (m *Mapper) MapBundle(b *fhir.Bundle) (*semgraph.Graph, error) {
	if b.ResourceType != "Bundle" {
		return nil, &FormatError{ResourceType: b.ResourceType}
	}
	g := semgraph.New()
	for _, entry := range b.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		m.ingest(g, entry.Resource)
	}
	m.derive(g)
	return g, nil
}

// ingest dispatches one raw resource to its type-specific extraction.
// Unrecognized types are preserved as a node carrying the whole raw
// record, so nothing is silently dropped.
func (m *Mapper) ingest(g *semgraph.Graph, raw json.RawMessage) {
	var env fhir.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	rtype := env.ResourceType
	if rtype == "" {
		rtype = semgraph.TypeUnknown
	}
	id := env.ID
	if id == "" {
		id = "unknown"
	}
	rid := rtype + "/" + id

	switch env.ResourceType {
	case semgraph.TypePatient:
		var p fhir.Patient
		if err := json.Unmarshal(raw, &p); err != nil {
			m.stashRaw(g, rid, rtype, raw)
			return
		}
		ingestPatient(g, rid, &p)
	case semgraph.TypeObservation:
		var o fhir.Observation
		if err := json.Unmarshal(raw, &o); err != nil {
			m.stashRaw(g, rid, rtype, raw)
			return
		}
		ingestObservation(g, rid, &o)
	case semgraph.TypeEncounter:
		var e fhir.Encounter
		if err := json.Unmarshal(raw, &e); err != nil {
			m.stashRaw(g, rid, rtype, raw)
			return
		}
		ingestEncounter(g, rid, &e)
	case semgraph.TypeCondition:
		var c fhir.Condition
		if err := json.Unmarshal(raw, &c); err != nil {
			m.stashRaw(g, rid, rtype, raw)
			return
		}
		ingestCondition(g, rid, &c)
	case semgraph.TypeMedicationStatement:
		var ms fhir.MedicationStatement
		if err := json.Unmarshal(raw, &ms); err != nil {
			m.stashRaw(g, rid, rtype, raw)
			return
		}
		ingestMedicationStatement(g, rid, &ms)
	default:
		m.stashRaw(g, rid, rtype, raw)
	}
}

func (m *Mapper) stashRaw(g *semgraph.Graph, rid, rtype string, raw json.RawMessage) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return
	}
	g.AddNode(rid, rtype, semgraph.Props{"raw": body})
}

func ingestPatient(g *semgraph.Graph, rid string, p *fhir.Patient) {
	props := semgraph.Props{}
	if p.Gender != "" {
		props["gender"] = p.Gender
	}
	if p.BirthDate != "" {
		props["birthDate"] = p.BirthDate
	}
	if len(p.Name) > 0 {
		nm := p.Name[0]
		full := strings.TrimSpace(strings.Join(nm.Given, " ") + " " + nm.Family)
		if full != "" {
			props["name"] = full
		}
	}
	g.AddNode(rid, semgraph.TypePatient, props)
}

func ingestObservation(g *semgraph.Graph, rid string, o *fhir.Observation) {
	props := semgraph.Props{}
	if s := codeSummary(o.Code); s != "" {
		props["code"] = s
	}
	if s := valueSummary(o); s != "" {
		props["value"] = s
	}
	if o.Status != "" {
		props["status"] = o.Status
	}
	g.AddNode(rid, semgraph.TypeObservation, props)

	addSubjectEdge(g, rid, o.Subject)

	if o.Code == nil {
		return
	}
	for _, c := range o.Code.Coding {
		if c.System == "" || c.Code == "" {
			continue
		}
		codeID := "Code/" + c.System + "|" + c.Code
		codeProps := semgraph.Props{"system": c.System, "code": c.Code}
		if c.Display != "" {
			codeProps["display"] = c.Display
		}
		g.AddNode(codeID, semgraph.TypeCode, codeProps)
		g.AddEdge(rid, codeID, semgraph.RelHasCode)
	}
}

func ingestEncounter(g *semgraph.Graph, rid string, e *fhir.Encounter) {
	props := semgraph.Props{}
	if e.Status != "" {
		props["status"] = e.Status
	}
	if e.Class != nil && e.Class.Code != "" {
		props["class"] = e.Class.Code
	}
	g.AddNode(rid, semgraph.TypeEncounter, props)
	addSubjectEdge(g, rid, e.Subject)
}

func ingestCondition(g *semgraph.Graph, rid string, c *fhir.Condition) {
	props := semgraph.Props{}
	if s := codeSummary(c.Code); s != "" {
		props["code"] = s
	}
	if c.ClinicalStatus != nil && c.ClinicalStatus.Text != "" {
		props["clinicalStatus"] = c.ClinicalStatus.Text
	}
	g.AddNode(rid, semgraph.TypeCondition, props)
	addSubjectEdge(g, rid, c.Subject)
}

func ingestMedicationStatement(g *semgraph.Graph, rid string, ms *fhir.MedicationStatement) {
	props := semgraph.Props{}
	if s := codeSummary(ms.MedicationCodeableConcept); s != "" {
		props["medication"] = s
	}
	if ms.Status != "" {
		props["status"] = ms.Status
	}
	g.AddNode(rid, semgraph.TypeMedicationStatement, props)
	addSubjectEdge(g, rid, ms.Subject)
}

func addSubjectEdge(g *semgraph.Graph, rid string, ref *fhir.Reference) {
	if ref == nil || ref.Reference == "" {
		return
	}
	g.AddEdge(rid, ref.Reference, semgraph.RelHasSubject)
}

// codeSummary resolves a human-readable summary for a codeable concept:
// explicit text first, then the first coding's display, then a synthetic
// "system|code" with the pipe dropped when either side is empty.
func codeSummary(cc *fhir.CodeableConcept) string {
	if cc == nil {
		return ""
	}
	if cc.Text != "" {
		return cc.Text
	}
	if len(cc.Coding) == 0 {
		return ""
	}
	c := cc.Coding[0]
	if c.Display != "" {
		return c.Display
	}
	return strings.Trim(c.System+"|"+c.Code, "|")
}

// valueSummary resolves an observation's value: quantity first, then
// string, then coded concept. First present variant wins.
func valueSummary(o *fhir.Observation) string {
	if q := o.ValueQuantity; q != nil {
		s := ""
		if q.Value != nil {
			s = strconv.FormatFloat(*q.Value, 'f', -1, 64)
		}
		if q.Unit != "" {
			s += " " + q.Unit
		}
		return strings.TrimSpace(s)
	}
	if o.ValueString != nil {
		return *o.ValueString
	}
	if o.ValueCodeableConcept != nil {
		return codeSummary(o.ValueCodeableConcept)
	}
	return ""
}
