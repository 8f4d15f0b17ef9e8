// Package builder implements IteratorBuilder: the recursive-descent
// procedure that turns one property's query.Tree into an iterator.DocumentIterator
// tree, amortizing term-dictionary lookups via a prefetch pass (spec.md §4.10).
//
// Grounded on original_source/.../QueryBuilder.cpp's
// do_prepare_for_property_ / prepare_for_property_ /
// getTermIdsAndIndexesOfSiblings.
package builder

import (
	"errors"
	"sort"
	"strconv"

	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/filter"
	"github.com/wizenheimer/qcore/index"
	"github.com/wizenheimer/qcore/iterator"
	"github.com/wizenheimer/qcore/predicate"
	"github.com/wizenheimer/qcore/query"
	"github.com/wizenheimer/qcore/scorer"
)

var (
	ErrPropertyNotFound = errors.New("builder: property not found in schema")
	ErrStandaloneNot    = errors.New("builder: NOT cannot be the sole top-level iterator")
)

// PropertySpec describes one indexed property participating in a query.
type PropertySpec struct {
	Property            query.Property
	HasUnigramProperty  bool
	IsUnigramSearchMode bool
	ReadPositions       bool
}

// Builder constructs per-property iterator trees from a parsed query tree.
// One Builder is scoped to a single query: it accumulates the global
// term-index slots every leaf across every property is assigned, for the
// scorer.BM25PropertyScorer a top-level scorer.MultiPropertyScorer is built
// with once every property has been prepared.
type Builder struct {
	snapshot index.Snapshot
	cache    *filter.Cache
	col      index.CollectionID
	docs     index.DocumentManager

	nextSlot uint32
	slots    []scorer.TermSlot
}

// NewBuilder constructs a Builder over snapshot (pinned once per query),
// sharing cache with the query's filter.Builder so the numeric-filter
// branch's synthetic EQUAL predicates reuse the same FilterCache entries
// filter predicates use. docs may be nil if no property uses
// UNIGRAM_WILDCARD.
func NewBuilder(snapshot index.Snapshot, cache *filter.Cache, col index.CollectionID, docs index.DocumentManager) *Builder {
	return &Builder{snapshot: snapshot, cache: cache, col: col, docs: docs}
}

// Slots returns the term-index -> property map assigned across every
// Prepare call made on this Builder so far, consumed to build the
// scorer.BM25PropertyScorer a scorer.MultiPropertyScorer scores through once
// every property has been prepared.
func (b *Builder) Slots() []scorer.TermSlot { return b.slots }

func (b *Builder) allocSlot(property string) uint32 {
	idx := b.nextSlot
	b.nextSlot++
	b.slots = append(b.slots, scorer.TermSlot{Property: property})
	return idx
}

// Prepare builds the iterator tree for tree against spec, returning (nil,
// nil) when the property legitimately yields no iterator — an empty
// numeric-filter match set, an absent property, or a standalone top-level
// NOT (spec.md §4.1: "a standalone negation yields an empty result").
func (b *Builder) Prepare(tree *query.Tree, spec PropertySpec) (iterator.DocumentIterator, error) {
	if tree == nil {
		return nil, nil
	}
	if tree.Type == query.Not {
		return nil, nil
	}

	readers, err := b.prefetch(tree, spec)
	if err != nil {
		return nil, err
	}

	it, ok := b.dispatch(tree, spec, readers, true)
	releaseUnconsumed(readers)
	if !ok {
		if it != nil {
			it.Close()
		}
		return nil, nil
	}
	if it == nil || it.Empty() {
		if it != nil {
			it.Close()
		}
		return nil, nil
	}
	return it, nil
}

// dispatch builds the iterator for one subtree, returning (iterator, ok).
// ok false means construction failed and any partial iterator within this
// subtree has already been closed; the caller propagates failure upward
// per the return policy in spec.md §4.10. parentIsAND is the "parentAndOrFlag"
// the original passes down, consulted only by RANK_KEYWORD leaves.
func (b *Builder) dispatch(tree *query.Tree, spec PropertySpec, readers map[query.TermID][]index.PostingReader, parentIsAND bool) (iterator.DocumentIterator, bool) {
	switch tree.Type {
	case query.Keyword, query.RankKeyword:
		return b.dispatchKeyword(tree, spec, readers, parentIsAND)

	case query.Not:
		return b.dispatchNot(tree, spec, readers)

	case query.And:
		and := iterator.NewAndIterator()
		for _, child := range tree.Children {
			it, ok := b.dispatch(child, spec, readers, true)
			if !ok {
				and.Close()
				return nil, false
			}
			if it != nil {
				and.Add(it)
			}
		}
		if and.Empty() {
			and.Close()
			return nil, true
		}
		return and, true

	case query.Or:
		or := iterator.NewOrIterator()
		anyOK := false
		for _, child := range tree.Children {
			it, ok := b.dispatch(child, spec, readers, false)
			if ok {
				anyOK = true
			}
			if it != nil {
				or.Add(it)
			}
		}
		if !anyOK {
			or.Close()
			return nil, false
		}
		if or.Empty() {
			or.Close()
			return nil, true
		}
		return or, true

	case query.AndPersonal, query.OrPersonal:
		p := iterator.NewPersonalIterator(tree.Type == query.AndPersonal)
		for _, child := range tree.Children {
			it, ok := b.dispatch(child, spec, readers, true)
			if !ok {
				p.Close()
				return nil, true
			}
			if it != nil {
				p.Add(it)
			}
		}
		if p.Empty() {
			p.Close()
			return nil, true
		}
		return p, true

	case query.Exact, query.Order, query.Nearby:
		return b.dispatchPhrase(tree, spec)

	case query.TrieWildcard:
		return b.dispatchTrieWildcard(tree, spec)

	case query.UnigramWildcard:
		return b.dispatchUnigramWildcard(tree, spec)

	default:
		return nil, true
	}
}

// dispatchKeyword builds a leaf for a KEYWORD or RANK_KEYWORD node,
// branching to the numeric-filter path when the property is a non-string
// indexed filter column (spec.md §4.10 step 2).
func (b *Builder) dispatchKeyword(tree *query.Tree, spec PropertySpec, readers map[query.TermID][]index.PostingReader, parentIsAND bool) (iterator.DocumentIterator, bool) {
	if spec.Property.IsNumericFilter() {
		return b.dispatchNumericKeyword(tree, spec)
	}

	slot := b.allocSlot(spec.Property.Name)

	r := popReader(readers, tree.TermID)
	if r == nil {
		var err error
		r, err = b.seekOn(spec.Property.Name, tree.TermID, spec.ReadPositions)
		if err != nil || r == nil {
			return nil, false
		}
	}

	switch {
	case !spec.IsUnigramSearchMode:
		leaf := iterator.NewTermDocumentIterator(slot)
		leaf.Set(r)
		return leaf, true

	case tree.Type == query.Keyword:
		return iterator.NewSearchTermDocumentIterator(r), true

	default: // RANK_KEYWORD in unigram-search mode
		leaf := iterator.NewRankTermDocumentIterator(slot, parentIsAND)
		leaf.Set(r)
		return leaf, true
	}
}

// dispatchNumericKeyword re-interprets a KEYWORD's surface as a typed
// literal and matches it against the property's numeric B-tree index,
// caching the resulting bitmap under a synthetic EQUAL predicate so
// repeated literals (and later FilterBuilder calls on the same property)
// reuse it (spec.md §4.10 step 2).
func (b *Builder) dispatchNumericKeyword(tree *query.Tree, spec PropertySpec) (iterator.DocumentIterator, bool) {
	value, err := parseLiteral(tree.Surface, spec.Property.Type)
	if err != nil {
		return nil, true
	}

	found, err := b.snapshot.Reader.SeekTermFromBTreeIndex(b.col, spec.Property.Name, value)
	if err != nil || !found {
		return nil, true
	}

	pred := predicate.Predicate{Operation: predicate.Equal, Property: spec.Property.Name, Values: []predicate.Value{value}}
	bm, ok := b.cache.Get(pred)
	if !ok {
		bm = bitmap.FromRoaring(nil)
		if err := b.snapshot.Reader.GetDocsByNumericValue(b.col, spec.Property.Name, value, bm); err != nil {
			return nil, true
		}
		b.cache.Set(pred, bm)
	}

	if bm.Cardinality() == 0 {
		return nil, true
	}

	b.allocSlot(spec.Property.Name)
	return iterator.NewBitmapIterator(bm.Iterator(), bm.Cardinality()), true
}

// dispatchNot builds the negated child leaf and wraps it in a
// NotIterator. A standalone absent negated term degrades to "contributes
// nothing", matching the original's bare-else-no-return fallthrough.
func (b *Builder) dispatchNot(tree *query.Tree, spec PropertySpec, readers map[query.TermID][]index.PostingReader) (iterator.DocumentIterator, bool) {
	if len(tree.Children) != 1 {
		return nil, false
	}
	child := tree.Children[0]
	if child.Type != query.Keyword && child.Type != query.RankKeyword {
		return nil, false
	}

	slot := b.allocSlot(spec.Property.Name)
	r := popReader(readers, child.TermID)
	if r == nil {
		var err error
		r, err = b.seekOn(spec.Property.Name, child.TermID, spec.ReadPositions)
		if err != nil || r == nil {
			return nil, true
		}
	}

	leaf := iterator.NewTermDocumentIterator(slot)
	leaf.Set(r)
	leaf.SetNot(true)
	return iterator.NewNotIterator(leaf), true
}

// dispatchPhrase builds EXACT/ORDER/NEARBY iterators, seeking
// position-carrying readers directly against the unigram alias property
// when available, bypassing the property-level prefetch map (the original
// never consults termDocReaders in these cases either).
func (b *Builder) dispatchPhrase(tree *query.Tree, spec PropertySpec) (iterator.DocumentIterator, bool) {
	property := spec.Property.Name
	if spec.HasUnigramProperty {
		property = spec.Property.UnigramAlias()
	}

	readers := make([]index.PostingReader, 0, len(tree.Children))
	for _, child := range tree.Children {
		if child.Type != query.Keyword && child.Type != query.RankKeyword {
			continue
		}
		r, err := b.seekOn(property, child.TermID, true)
		if err != nil || r == nil {
			for _, already := range readers {
				already.Close()
			}
			return nil, true
		}
		readers = append(readers, r)
	}
	if len(readers) == 0 {
		return nil, true
	}

	switch tree.Type {
	case query.Exact:
		return iterator.NewExactIterator(readers), true
	case query.Order:
		return iterator.NewOrderIterator(readers), true
	case query.Nearby:
		return iterator.NewNearbyIterator(readers, tree.Distance), true
	default:
		for _, r := range readers {
			r.Close()
		}
		return nil, true
	}
}

// dispatchTrieWildcard seeks a doc-frequency-only reader for every
// expanded KEYWORD child and unions the busiest five (spec.md §4.8/§4.10).
func (b *Builder) dispatchTrieWildcard(tree *query.Tree, spec PropertySpec) (iterator.DocumentIterator, bool) {
	if len(tree.Children) == 0 {
		return nil, false
	}
	var readers []index.PostingReader
	for _, child := range tree.Children {
		if child.Type != query.Keyword {
			continue
		}
		r, err := b.seekOn(spec.Property.Name, child.TermID, false)
		if err != nil || r == nil {
			continue
		}
		readers = append(readers, r)
	}
	if len(readers) == 0 {
		return nil, false
	}
	return iterator.NewTrieWildcardIterator(readers), true
}

// dispatchUnigramWildcard builds the glob-matching sequence and a
// candidate-union of the sequence's literal terms (spec.md §4.8/§4.10).
func (b *Builder) dispatchUnigramWildcard(tree *query.Tree, spec PropertySpec) (iterator.DocumentIterator, bool) {
	property := spec.Property.Name
	if spec.HasUnigramProperty {
		property = spec.Property.UnigramAlias()
	}

	var literalReaders []index.PostingReader
	var pattern []iterator.GlobPart
	for _, child := range tree.Children {
		switch child.Type {
		case query.Asterisk:
			pattern = append(pattern, iterator.Star())
		case query.QuestionMark:
			pattern = append(pattern, iterator.Any())
		default:
			pattern = append(pattern, iterator.Literal(child.Surface))
			r, err := b.seekOn(property, child.TermID, false)
			if err == nil && r != nil {
				literalReaders = append(literalReaders, r)
			}
		}
	}
	if len(literalReaders) == 0 {
		return nil, true
	}
	return iterator.NewUnigramWildcardIterator(literalReaders, pattern, b.docs, property), true
}

// seekOn opens a fresh term reader, seeks termID within property and
// returns a doc-freq or position-carrying posting reader. Used for the
// lazy-accept fallback and for phrase/wildcard nodes, which always seek
// independently of the per-property prefetch pass.
func (b *Builder) seekOn(property string, termID query.TermID, positions bool) (index.PostingReader, error) {
	tr, err := b.snapshot.Reader.GetTermReader(b.col)
	if err != nil {
		return nil, err
	}
	defer tr.Close()
	if !tr.Seek(property, termID) {
		return nil, nil
	}
	if positions {
		return tr.TermPositions()
	}
	return tr.TermDocFreqs()
}

// prefetch collects every KEYWORD/RANK_KEYWORD leaf's termID under the
// plain combinator nodes (KEYWORD/NOT/AND/OR/AND_PERSONAL/OR_PERSONAL),
// sorts them, and seeks each occurrence once up front — amortizing
// dictionary lookups the way the original's PREFETCH_TERMID path does
// (spec.md §4.10 step 1). Phrase and wildcard subtrees seek their own
// readers later and are skipped here. Numeric-filter properties skip
// prefetch entirely; their KEYWORD leaves are resolved through the B-tree
// index instead.
func (b *Builder) prefetch(tree *query.Tree, spec PropertySpec) (map[query.TermID][]index.PostingReader, error) {
	if spec.Property.IsNumericFilter() {
		return nil, nil
	}

	var ids []query.TermID
	collectTermLeaves(tree, &ids)
	if len(ids) == 0 {
		return map[query.TermID][]index.PostingReader{}, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tr, err := b.snapshot.Reader.GetTermReader(b.col)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	readers := make(map[query.TermID][]index.PostingReader)
	for _, id := range ids {
		if !tr.Seek(spec.Property.Name, id) {
			continue
		}
		var r index.PostingReader
		if spec.ReadPositions {
			r, err = tr.TermPositions()
		} else {
			r, err = tr.TermDocFreqs()
		}
		if err != nil || r == nil {
			continue
		}
		readers[id] = append(readers[id], r)
	}
	return readers, nil
}

func collectTermLeaves(tree *query.Tree, out *[]query.TermID) {
	switch tree.Type {
	case query.Keyword, query.RankKeyword:
		*out = append(*out, tree.TermID)
	case query.Not, query.And, query.Or, query.AndPersonal, query.OrPersonal:
		for _, c := range tree.Children {
			collectTermLeaves(c, out)
		}
	}
}

func popReader(readers map[query.TermID][]index.PostingReader, id query.TermID) index.PostingReader {
	list := readers[id]
	if len(list) == 0 {
		return nil
	}
	r := list[0]
	readers[id] = list[1:]
	return r
}

func releaseUnconsumed(readers map[query.TermID][]index.PostingReader) {
	for _, list := range readers {
		for _, r := range list {
			r.Close()
		}
	}
}

// parseLiteral converts a KEYWORD's surface form into a typed predicate
// value matching property's declared type (spec.md §4.10 step 2). Dates
// are represented as Unix-epoch integers, matching the only numeric
// representation predicate.Value offers.
func parseLiteral(surface string, t query.PropertyType) (predicate.Value, error) {
	switch t {
	case query.Integer, query.Date:
		v, err := strconv.ParseInt(surface, 10, 64)
		if err != nil {
			return predicate.Value{}, err
		}
		return predicate.IntValue(v), nil
	case query.Unsigned:
		v, err := strconv.ParseUint(surface, 10, 64)
		if err != nil {
			return predicate.Value{}, err
		}
		return predicate.UintValue(v), nil
	case query.Float:
		v, err := strconv.ParseFloat(surface, 64)
		if err != nil {
			return predicate.Value{}, err
		}
		return predicate.FloatValue(v), nil
	default:
		return predicate.StringValue(surface), nil
	}
}
