// Package sandbox generates synthetic per-patient FHIR bundles for demos
// and testing. Output is reproducible for a given seed. Patients are drawn
// from a small set of clinical phenotypes (febrile, tachycardic, hypoxic
// and combinations) so the downstream population graph shows meaningful
// co-occurrence patterns.
package sandbox

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ehr/popgraph/internal/platform/fhir"
	"github.com/ehr/popgraph/pkg/fhirmodels"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// GenConfig controls the volume and shape of generated synthetic bundles.
type GenConfig struct {
	PatientCount int   `json:"patientCount"`
	Seed         int64 `json:"seed"`
}

// DefaultGenConfig returns a GenConfig with sensible defaults.
func DefaultGenConfig() GenConfig {
	return GenConfig{PatientCount: 60}
}

// ---------------------------------------------------------------------------
// Phenotypes
// ---------------------------------------------------------------------------

type phenotype struct {
	name   string
	weight int
	fever  bool
	tachy  bool
	hypox  bool
}

// Weights tilt toward mildly sick patients to create co-occurrences.
var phenotypes = []phenotype{
	{name: "normal", weight: 2},
	{name: "fever_only", weight: 2, fever: true},
	{name: "tachy_only", weight: 2, tachy: true},
	{name: "fever_tachy", weight: 4, fever: true, tachy: true},
	{name: "low_spo2", weight: 1, hypox: true},
	{name: "fever_tachy_low_spo2", weight: 2, fever: true, tachy: true, hypox: true},
}

// ---------------------------------------------------------------------------
// Name pools
// ---------------------------------------------------------------------------

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
		"Linda", "David", "Elizabeth", "William", "Barbara", "Richard",
		"Susan", "Joseph", "Jessica", "Thomas", "Sarah", "Daniel", "Karen",
		"Matthew", "Lisa", "Anthony", "Nancy", "Mark", "Emily", "Steven",
		"Anna", "Andrew", "Rachel",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Wilson", "Anderson",
		"Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez",
		"Thompson", "White", "Harris", "Clark", "Lewis", "Walker", "Young",
	}
	medications = []string{
		"Acetaminophen 500mg", "Ibuprofen 200mg", "Lisinopril 10mg",
		"Metformin 500mg", "Amoxicillin 250mg",
	}
	conditions = []string{
		"Viral infection", "Hypertension", "Type 2 diabetes", "Asthma",
	}
)

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// Generator produces deterministic synthetic patient bundles.
type Generator struct {
	rng     *rand.Rand
	counter uint64
	weights int
}

// NewGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	total := 0
	for _, p := range phenotypes {
		total += p.weight
	}
	return &Generator{
		rng:     rand.New(rand.NewSource(seed)),
		weights: total,
	}
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) pickPhenotype() phenotype {
	n := g.rng.Intn(g.weights)
	for _, p := range phenotypes {
		n -= p.weight
		if n < 0 {
			return p
		}
	}
	return phenotypes[0]
}

func (g *Generator) round1(v float64) float64 {
	return float64(int(v*10)) / 10
}

func (g *Generator) vitalObservation(id, patientID, code, display, unit string, value float64) fhir.BundleEntry {
	return entry(map[string]interface{}{
		"resourceType": "Observation",
		"id":           id,
		"status":       "final",
		"code": map[string]interface{}{
			"text": display,
			"coding": []interface{}{
				map[string]interface{}{
					"system":  fhirmodels.SystemLOINC,
					"code":    code,
					"display": display,
				},
			},
		},
		"subject": map[string]interface{}{"reference": "Patient/" + patientID},
		"valueQuantity": map[string]interface{}{
			"value": value,
			"unit":  unit,
		},
	})
}

func entry(resource map[string]interface{}) fhir.BundleEntry {
	raw, _ := json.Marshal(resource)
	return fhir.BundleEntry{Resource: raw}
}

// GenerateBundle produces one patient's bundle: a Patient resource,
// temperature and heart-rate observations, an optional SpO2 observation,
// and occasionally an Encounter, Condition or MedicationStatement so every
// mapped resource type occurs in a generated corpus.
func (g *Generator) GenerateBundle(n int) *fhir.Bundle {
	pid := fmt.Sprintf("p%d", n)
	ph := g.pickPhenotype()

	temp := 36.5 + g.rng.Float64()
	hr := float64(70 + g.rng.Intn(20))
	spo2 := float64(95 + g.rng.Intn(4))
	if ph.fever {
		temp = 38.2 + g.rng.Float64()*1.2
	}
	if ph.tachy {
		hr = float64(105 + g.rng.Intn(21))
	}
	if ph.hypox {
		spo2 = float64(86 + g.rng.Intn(6))
	}

	gender := fhirmodels.GenderFemale
	if g.rng.Intn(2) == 0 {
		gender = fhirmodels.GenderMale
	}

	b := &fhir.Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Entry: []fhir.BundleEntry{
			entry(map[string]interface{}{
				"resourceType": "Patient",
				"id":           pid,
				"gender":       gender,
				"birthDate":    fmt.Sprintf("%d-01-01", 1950+g.rng.Intn(55)),
				"name": []interface{}{
					map[string]interface{}{
						"family": g.pick(lastNames),
						"given":  []interface{}{g.pick(firstNames)},
					},
				},
			}),
			g.vitalObservation(fmt.Sprintf("obs-temp-%d", n), pid,
				fhirmodels.LOINCBodyTemperature, "Body temperature", "Celsius", g.round1(temp)),
			g.vitalObservation(fmt.Sprintf("obs-hr-%d", n), pid,
				fhirmodels.LOINCHeartRate, "Heart rate", "beats/minute", hr),
		},
	}

	if ph.hypox || g.rng.Float64() < 0.5 {
		b.Entry = append(b.Entry, g.vitalObservation(fmt.Sprintf("obs-spo2-%d", n), pid,
			fhirmodels.LOINCOxygenSat, "Oxygen saturation", "%", spo2))
	}

	if g.rng.Float64() < 0.3 {
		b.Entry = append(b.Entry, entry(map[string]interface{}{
			"resourceType": "Encounter",
			"id":           fmt.Sprintf("enc-%d", n),
			"status":       fhirmodels.EncounterStatusFinished,
			"class":        map[string]interface{}{"code": fhirmodels.EncounterClassAmbulatory},
			"subject":      map[string]interface{}{"reference": "Patient/" + pid},
		}))
	}
	if ph.fever || g.rng.Float64() < 0.2 {
		b.Entry = append(b.Entry, entry(map[string]interface{}{
			"resourceType":   "Condition",
			"id":             fmt.Sprintf("cond-%d", n),
			"code":           map[string]interface{}{"text": g.pick(conditions)},
			"clinicalStatus": map[string]interface{}{"text": fhirmodels.ConditionActive},
			"subject":        map[string]interface{}{"reference": "Patient/" + pid},
		}))
	}
	if g.rng.Float64() < 0.25 {
		b.Entry = append(b.Entry, entry(map[string]interface{}{
			"resourceType": "MedicationStatement",
			"id":           fmt.Sprintf("med-%d", n),
			"status":       fhirmodels.MedicationStatementActive,
			"medicationCodeableConcept": map[string]interface{}{
				"text": g.pick(medications),
			},
			"subject": map[string]interface{}{"reference": "Patient/" + pid},
		}))
	}

	return b
}

// WriteBundles generates cfg.PatientCount bundles into dir, one file per
// patient, named bundle_NNN.json. The directory is created if needed.
func WriteBundles(dir string, cfg GenConfig) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create bundles dir: %w", err)
	}
	g := NewGenerator(cfg.Seed)
	for i := 0; i < cfg.PatientCount; i++ {
		b := g.GenerateBundle(i)
		raw, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return i, err
		}
		path := filepath.Join(dir, fmt.Sprintf("bundle_%03d.json", i))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return i, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return cfg.PatientCount, nil
}
