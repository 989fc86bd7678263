// Package pipeline runs the batch transformation: every bundle document
// from a source is mapped to its per-record graph, reduced to a concept
// set, and accumulated into the population aggregate. Records are
// independent and the result does not depend on their order; accumulation
// is serialized through a single aggregator.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ehr/popgraph/internal/domain/mapper"
	"github.com/ehr/popgraph/internal/domain/population"
)

// ErrNoBundles is returned when the source yields no documents at all.
var ErrNoBundles = errors.New("no bundle documents found")

// Document is one raw bundle with a name for error reporting.
type Document struct {
	Name string
	Body []byte
}

// Source enumerates bundle documents for one batch run.
type Source interface {
	Documents() ([]Document, error)
}

// DirSource reads every *.json file in a directory, in name order.
type DirSource struct {
	Dir string
}

// Documents implements Source.
func (s DirSource) Documents() ([]Document, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		body, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, Document{Name: filepath.Base(p), Body: body})
	}
	return docs, nil
}

// Options configures a batch run. Zero values select the defaults: the
// built-in derivation rules, the Finding+Code concept types, and no
// logging.
type Options struct {
	Rules        []mapper.Rule
	ConceptTypes map[string]struct{}
	Log          zerolog.Logger
}

// Run maps every document from src, extracts its concept set and
// aggregates across all records. A document whose root is not a Bundle
// aborts the whole run; an empty source fails with ErrNoBundles.
func Run(src Source, opts Options) (*population.MetaGraph, error) {
	docs, err := src.Documents()
	if err != nil {
		return nil, fmt.Errorf("enumerate bundles: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: run the data generator first", ErrNoBundles)
	}

	types := opts.ConceptTypes
	if types == nil {
		types = population.DefaultConceptTypes()
	}
	m := mapper.NewMapper(opts.Rules)
	agg := population.NewAggregator()

	for _, doc := range docs {
		g, err := m.Map(doc.Body)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", doc.Name, err)
		}
		concepts := population.Concepts(g, types)
		opts.Log.Debug().
			Str("bundle", doc.Name).
			Int("nodes", len(g.Nodes)).
			Int("edges", len(g.Edges)).
			Int("concepts", len(concepts)).
			Msg("mapped bundle")
		if len(concepts) == 0 {
			continue
		}
		agg.Add(concepts)
	}

	opts.Log.Info().
		Int("bundles", len(docs)).
		Int("records", agg.Records()).
		Msg("aggregation complete")
	return agg.Build(), nil
}
