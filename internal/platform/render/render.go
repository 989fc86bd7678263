// Package render draws the aggregate concept graph as a PNG. Rendering is
// best effort: callers log a failure as a notice and continue, it never
// fails a pipeline run.
package render

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/ehr/popgraph/internal/domain/population"
)

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	// LabelMinSupport hides labels for low-support nodes to keep the
	// image readable. Labels are only drawn when FontPath loads.
	LabelMinSupport int
	FontPath        string
	FontSize        float64
	// Seed fixes the layout so repeated runs produce the same image.
	Seed int64
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Width:           1000,
		Height:          800,
		LabelMinSupport: 10,
		FontSize:        12,
		Seed:            42,
	}
}

// Render lays the graph out with a seeded force-directed pass and writes
// it to path. Node radius grows with support, edge width with weight.
func Render(mg *population.MetaGraph, path string, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		o := DefaultOptions()
		opts.Width, opts.Height = o.Width, o.Height
	}
	if len(mg.Nodes) == 0 {
		return fmt.Errorf("nothing to render: graph has no nodes")
	}

	pos := layout(mg, opts.Seed)

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	margin := 60.0
	sx := float64(opts.Width) - 2*margin
	sy := float64(opts.Height) - 2*margin
	at := func(id string) (float64, float64) {
		p := pos[id]
		return margin + p.x*sx, margin + p.y*sy
	}

	for _, e := range mg.Edges {
		x1, y1 := at(e.Src)
		x2, y2 := at(e.Dst)
		dc.SetRGBA(0.4, 0.4, 0.5, 0.6)
		dc.SetLineWidth(0.5 + 0.2*float64(e.Weight))
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	for _, id := range sortedIDs(mg) {
		n := mg.Nodes[id]
		x, y := at(id)
		r := 4 + 2*math.Sqrt(float64(n.Props.Support))
		dc.SetRGB(0.18, 0.42, 0.69)
		dc.DrawCircle(x, y, r)
		dc.Fill()
	}

	if face, err := loadFontFace(opts.FontPath, opts.FontSize); err == nil && face != nil {
		dc.SetFontFace(face)
		dc.SetRGB(0.1, 0.1, 0.1)
		for _, id := range sortedIDs(mg) {
			n := mg.Nodes[id]
			if n.Props.Support < opts.LabelMinSupport {
				continue
			}
			x, y := at(id)
			dc.DrawStringAnchored(shortLabel(id), x, y, 0.5, 0.5)
		}
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	return nil
}

// shortLabel trims "Finding/Fever" to "Fever" and caps the length.
func shortLabel(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' {
			id = id[i+1:]
			break
		}
	}
	if len(id) > 20 {
		id = id[:20]
	}
	return id
}

func loadFontFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 12
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

type point struct {
	x, y float64
}

// layout runs a small Fruchterman-Reingold simulation in the unit square.
// Node order and the random source are fixed so the result is
// deterministic for a given graph and seed.
func layout(mg *population.MetaGraph, seed int64) map[string]point {
	ids := sortedIDs(mg)
	rng := rand.New(rand.NewSource(seed))

	pos := make(map[string]point, len(ids))
	for _, id := range ids {
		pos[id] = point{rng.Float64(), rng.Float64()}
	}
	if len(ids) == 1 {
		pos[ids[0]] = point{0.5, 0.5}
		return pos
	}

	k := math.Sqrt(1.0 / float64(len(ids)))
	temp := 0.1
	const iterations = 60

	for iter := 0; iter < iterations; iter++ {
		disp := make(map[string]point, len(ids))

		// Repulsion between every node pair.
		for i, a := range ids {
			for _, b := range ids[i+1:] {
				dx := pos[a].x - pos[b].x
				dy := pos[a].y - pos[b].y
				d := math.Hypot(dx, dy)
				if d < 1e-9 {
					dx, dy, d = rng.Float64()*1e-3, rng.Float64()*1e-3, 1e-3
				}
				f := k * k / d
				disp[a] = point{disp[a].x + dx/d*f, disp[a].y + dy/d*f}
				disp[b] = point{disp[b].x - dx/d*f, disp[b].y - dy/d*f}
			}
		}

		// Attraction along edges.
		for _, e := range mg.Edges {
			dx := pos[e.Src].x - pos[e.Dst].x
			dy := pos[e.Src].y - pos[e.Dst].y
			d := math.Hypot(dx, dy)
			if d < 1e-9 {
				continue
			}
			f := d * d / k
			disp[e.Src] = point{disp[e.Src].x - dx/d*f, disp[e.Src].y - dy/d*f}
			disp[e.Dst] = point{disp[e.Dst].x + dx/d*f, disp[e.Dst].y + dy/d*f}
		}

		for _, id := range ids {
			dx, dy := disp[id].x, disp[id].y
			d := math.Hypot(dx, dy)
			if d > 1e-9 {
				step := math.Min(d, temp)
				pos[id] = point{
					x: clamp01(pos[id].x + dx/d*step),
					y: clamp01(pos[id].y + dy/d*step),
				}
			}
		}
		temp *= 0.95
	}
	return pos
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func sortedIDs(mg *population.MetaGraph) []string {
	ids := make([]string, 0, len(mg.Nodes))
	for id := range mg.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
