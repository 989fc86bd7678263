package render

import (
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ehr/popgraph/internal/domain/population"
)

func sampleGraph() *population.MetaGraph {
	agg := population.NewAggregator()
	for i := 0; i < 3; i++ {
		agg.Add(map[string]struct{}{
			"Finding/Fever":       {},
			"Finding/Tachycardia": {},
		})
	}
	agg.Add(map[string]struct{}{"Finding/Fever": {}, "Code/loinc|8310-5": {}})
	return agg.Build()
}

func TestRender_WritesDecodablePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta_graph.png")

	opts := DefaultOptions()
	opts.Width, opts.Height = 320, 240
	if err := Render(sampleGraph(), path, opts); err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("unexpected image size %dx%d", b.Dx(), b.Dy())
	}
}

func TestRender_EmptyGraphFails(t *testing.T) {
	mg := population.NewAggregator().Build()
	err := Render(mg, filepath.Join(t.TempDir(), "x.png"), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for empty graph")
	}
}

func TestRender_MissingFontSkipsLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta_graph.png")
	opts := DefaultOptions()
	opts.Width, opts.Height = 100, 100
	opts.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	opts.LabelMinSupport = 0

	if err := Render(sampleGraph(), path, opts); err != nil {
		t.Fatalf("render must not fail on a missing font: %v", err)
	}
}

func TestLayout_Deterministic(t *testing.T) {
	mg := sampleGraph()
	a := layout(mg, 42)
	b := layout(mg, 42)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("layout must be deterministic for a fixed seed")
	}
}

func TestLayout_PositionsInUnitSquare(t *testing.T) {
	for id, p := range layout(sampleGraph(), 7) {
		if p.x < 0 || p.x > 1 || p.y < 0 || p.y > 1 {
			t.Fatalf("node %s out of bounds: %+v", id, p)
		}
	}
}

func TestShortLabel(t *testing.T) {
	if got := shortLabel("Finding/Fever"); got != "Fever" {
		t.Fatalf("shortLabel = %q", got)
	}
	if got := shortLabel("Code/http://loinc.org|8310-5"); len(got) > 20 {
		t.Fatalf("label not capped: %q", got)
	}
}
