package sandbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func mustString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func mustSlice(m map[string]interface{}, key string) []interface{} {
	s, _ := m[key].([]interface{})
	return s
}

func mustMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func bundleResources(t *testing.T, raw []byte) []map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal bundle: %v", err)
	}
	if mustString(doc, "resourceType") != "Bundle" {
		t.Fatalf("expected Bundle root, got %v", doc["resourceType"])
	}
	var resources []map[string]interface{}
	for _, e := range mustSlice(doc, "entry") {
		resources = append(resources, mustMap(mustMap(e)["resource"]))
	}
	return resources
}

func TestGenerateBundle_HasPatientAndVitals(t *testing.T) {
	g := NewGenerator(42)
	raw, err := json.Marshal(g.GenerateBundle(0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resources := bundleResources(t, raw)

	counts := map[string]int{}
	for _, r := range resources {
		counts[mustString(r, "resourceType")]++
	}
	if counts["Patient"] != 1 {
		t.Fatalf("expected one Patient, got %d", counts["Patient"])
	}
	if counts["Observation"] < 2 {
		t.Fatalf("expected at least temperature and heart rate, got %d observations", counts["Observation"])
	}
}

func TestGenerateBundle_ObservationShape(t *testing.T) {
	g := NewGenerator(42)
	raw, _ := json.Marshal(g.GenerateBundle(7))

	for _, r := range bundleResources(t, raw) {
		if mustString(r, "resourceType") != "Observation" {
			continue
		}
		code := mustMap(r["code"])
		codings := mustSlice(code, "coding")
		if len(codings) == 0 {
			t.Fatal("observation without coding")
		}
		c := mustMap(codings[0])
		if mustString(c, "system") != "http://loinc.org" || mustString(c, "code") == "" {
			t.Fatalf("unexpected coding: %v", c)
		}
		subj := mustMap(r["subject"])
		if mustString(subj, "reference") != "Patient/p7" {
			t.Fatalf("observation not linked to its patient: %v", subj)
		}
		vq := mustMap(r["valueQuantity"])
		if _, ok := vq["value"].(float64); !ok {
			t.Fatalf("expected numeric valueQuantity, got %v", vq["value"])
		}
	}
}

func TestGenerator_DeterministicPerSeed(t *testing.T) {
	a, _ := json.Marshal(NewGenerator(1234).GenerateBundle(0))
	b, _ := json.Marshal(NewGenerator(1234).GenerateBundle(0))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed must produce identical bundles")
	}

	c, _ := json.Marshal(NewGenerator(99).GenerateBundle(0))
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds should produce different bundles")
	}
}

func TestGenerator_PhenotypeValueRanges(t *testing.T) {
	g := NewGenerator(7)
	for i := 0; i < 200; i++ {
		ph := g.pickPhenotype()
		if ph.weight <= 0 {
			t.Fatalf("picked impossible phenotype %q", ph.name)
		}
	}
}

func TestWriteBundles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bundles")
	n, err := WriteBundles(dir, GenConfig{PatientCount: 5, Seed: 42})
	if err != nil {
		t.Fatalf("write bundles: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bundles written, got %d", n)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("expected 5 files, got %d", len(files))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "bundle_000.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	bundleResources(t, raw)
}
