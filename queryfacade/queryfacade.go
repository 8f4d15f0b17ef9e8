// Package queryfacade exposes the query-evaluation core's narrow local
// surface for a Remote Worker Facade (spec.md §6): prepare a filter, prepare
// a single property's scored iterator, prepare a ranked multi-property
// MultiPropertyScorer, reset the shared predicate cache. It is pure
// plumbing over filter.Builder, builder.Builder and scorer.MultiPropertyScorer
// — an RPC layer (out of scope for this module) is the intended caller.
package queryfacade

import (
	"github.com/wizenheimer/qcore/builder"
	"github.com/wizenheimer/qcore/filter"
	"github.com/wizenheimer/qcore/index"
	"github.com/wizenheimer/qcore/iterator"
	"github.com/wizenheimer/qcore/predicate"
	"github.com/wizenheimer/qcore/query"
	"github.com/wizenheimer/qcore/scorer"
)

// Facade bundles the FilterBuilder with everything an IteratorBuilder needs
// to construct fresh per-query: the index reader (pinned into a Snapshot on
// every PrepareIterator call, per spec.md §5's dirty-handle model), the
// collection it serves, and the document manager wildcard iterators
// consult.
type Facade struct {
	filterBuilder *filter.Builder
	reader        index.Reader
	refresh       func() index.Reader
	col           index.CollectionID
	docs          index.DocumentManager
}

// New constructs a Facade. refresh is invoked to obtain a fresh Reader
// handle whenever reader.IsDirty() is observed true at query start; it may
// be nil if the caller's Reader never goes dirty mid-process.
func New(reader index.Reader, refresh func() index.Reader, col index.CollectionID, docs index.DocumentManager, filterCacheSize int) *Facade {
	return &Facade{
		filterBuilder: filter.NewBuilder(reader, filterCacheSize),
		reader:        reader,
		refresh:       refresh,
		col:           col,
		docs:          docs,
	}
}

// PrepareFilter builds the conjunction of predicates into a single Filter,
// per FilterBuilder.Prepare.
func (f *Facade) PrepareFilter(predicates []predicate.Predicate) (*filter.Filter, error) {
	return f.filterBuilder.Prepare(predicates)
}

// PrepareIterator pins a fresh Snapshot of the index reader and builds
// tree's scored iterator, per IteratorBuilder.Prepare. The returned
// iterator's term-slot assignments come from a Builder scoped to this one
// call — callers that need Slots() for scoring should use PrepareIteratorWithBuilder.
func (f *Facade) PrepareIterator(tree *query.Tree, spec builder.PropertySpec) (iterator.DocumentIterator, error) {
	it, _, err := f.PrepareIteratorWithBuilder(tree, spec)
	return it, err
}

// PrepareIteratorWithBuilder is PrepareIterator but also returns the
// per-query Builder, so a caller can read Slots() to build a
// scorer.BM25PropertyScorer over the single property's iterator. Most
// callers scoring across several properties at once should use
// PrepareMultiPropertyIterator instead.
func (f *Facade) PrepareIteratorWithBuilder(tree *query.Tree, spec builder.PropertySpec) (iterator.DocumentIterator, *builder.Builder, error) {
	snapshot := index.Pin(f.reader, f.refresh)
	b := builder.NewBuilder(snapshot, f.filterBuilder.Cache(), f.col, f.docs)
	it, err := b.Prepare(tree, spec)
	return it, b, err
}

// PrepareMultiPropertyIterator is the query evaluation core's
// `prepareIterator(query, properties, weights, readPositions, termIndexMaps)
// -> Option<MultiPropertyScorer>` entry point (spec.md §6, §4.9). It pins one
// Snapshot and shares a single Builder across every property in specs, so
// Builder.Slots() accumulates one global term-index -> property map spanning
// the whole query (the original's prepare_dociterator loop over
// success_properties), then wraps the per-property iterators it collects in
// a MultiPropertyScorer driven by a BM25PropertyScorer built from
// propertyConfigs.
//
// If every property legitimately yields nothing (spec.md §7's EmptyQuery —
// no property built a non-empty top iterator), PrepareMultiPropertyIterator
// returns (nil, nil): a "no results" sentinel, not an error.
func (f *Facade) PrepareMultiPropertyIterator(
	tree *query.Tree,
	specs []builder.PropertySpec,
	propertyConfigs map[string]scorer.PropertyConfig,
	params scorer.Parameters,
	lengths scorer.DocLengthSource,
) (*scorer.MultiPropertyScorer, error) {
	snapshot := index.Pin(f.reader, f.refresh)
	b := builder.NewBuilder(snapshot, f.filterBuilder.Cache(), f.col, f.docs)

	properties := make(map[string]iterator.DocumentIterator, len(specs))
	for _, spec := range specs {
		it, err := b.Prepare(tree, spec)
		if err != nil {
			for _, already := range properties {
				already.Close()
			}
			return nil, err
		}
		if it != nil {
			properties[spec.Property.Name] = it
		}
	}

	if len(properties) == 0 {
		return nil, nil
	}

	term := scorer.NewBM25PropertyScorer(params, b.Slots(), propertyConfigs, lengths)
	return scorer.NewMultiPropertyScorer(term, properties), nil
}

// ResetCache discards every cached predicate bitmap, shared by both the
// FilterBuilder and any numeric-filter leaves an IteratorBuilder builds.
func (f *Facade) ResetCache() {
	f.filterBuilder.ResetCache()
}
