// Package memindex is an in-memory reference implementation of the Index
// Reader / Document Manager contracts (index.Reader, index.TermReader,
// index.DocumentManager), built to exercise and test the query-evaluation
// core end to end.
//
// Grounded on the teacher's InvertedIndex (index.go): the same hybrid
// storage idea — a per-term roaring.Bitmap for document-level membership,
// plus a per-(term,document) position list for phrase/proximity queries —
// reshaped around this module's (query.TermID, property) addressing instead
// of raw token strings, and collapsed from a skip list to a sorted []int
// per document since a static, build-once posting list never needs
// skip list's amortized-insert properties (see DESIGN.md).
package memindex

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/index"
	"github.com/wizenheimer/qcore/predicate"
	"github.com/wizenheimer/qcore/query"
)

// ErrNoPostingList is returned when a term reader is asked to produce a
// posting reader for a term it was never Seek'd onto — mirrors the
// teacher's ErrNoPostingList.
var ErrNoPostingList = errors.New("memindex: no posting list exists for term")

// posting is one term's occurrences within a single property: a
// document-level bitmap plus per-document sorted positions.
type posting struct {
	docs      *roaring.Bitmap
	positions map[docid.DocID][]int
}

func newPosting() *posting {
	return &posting{docs: roaring.New(), positions: make(map[docid.DocID][]int)}
}

func (p *posting) add(doc docid.DocID, position int) {
	p.docs.Add(uint32(doc))
	p.positions[doc] = append(p.positions[doc], position)
}

// Index is an in-memory collection: one term->posting map per property,
// one numeric value per (property, document) for numeric-filter
// properties, and raw per-document content for the DocumentManager
// contract.
type Index struct {
	mu sync.RWMutex

	col    index.CollectionID
	maxDoc docid.DocID
	dirty  bool

	// property -> term -> posting
	postings map[string]map[query.TermID]*posting

	// property -> document -> numeric literal, for numeric-filter columns
	numeric map[string]map[docid.DocID]predicate.Value

	// property -> document -> raw content, for DocumentManager and
	// re-tokenization by phrase/wildcard test fixtures
	content map[string]map[docid.DocID][]byte
}

// New constructs an empty Index for collection col.
func New(col index.CollectionID) *Index {
	return &Index{
		col:      col,
		postings: make(map[string]map[query.TermID]*posting),
		numeric:  make(map[string]map[docid.DocID]predicate.Value),
		content:  make(map[string]map[docid.DocID][]byte),
	}
}

// AddTerm records a single occurrence of term within property, at position,
// in doc. Grounded on the teacher's indexToken: updates the doc-level
// bitmap and the position list together.
func (idx *Index) AddTerm(property string, term query.TermID, doc docid.DocID, position int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byTerm, ok := idx.postings[property]
	if !ok {
		byTerm = make(map[query.TermID]*posting)
		idx.postings[property] = byTerm
	}
	p, ok := byTerm[term]
	if !ok {
		p = newPosting()
		byTerm[term] = p
	}
	p.add(doc, position)

	if doc > idx.maxDoc {
		idx.maxDoc = doc
	}
	slog.Info("memindex: indexed term occurrence",
		slog.String("property", property), slog.Int("doc", int(doc)), slog.Int("position", position))
}

// SetNumericValue records doc's literal value for a numeric-filter
// property, consulted by MakeRangeQuery, GetDocsByNumericValue and
// SeekTermFromBTreeIndex.
func (idx *Index) SetNumericValue(property string, doc docid.DocID, value predicate.Value) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byDoc, ok := idx.numeric[property]
	if !ok {
		byDoc = make(map[docid.DocID]predicate.Value)
		idx.numeric[property] = byDoc
	}
	byDoc[doc] = value
	if doc > idx.maxDoc {
		idx.maxDoc = doc
	}
}

// SetContent records doc's raw content for property, consulted by
// GetDocumentContent (unigram wildcard matching).
func (idx *Index) SetContent(property string, doc docid.DocID, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byDoc, ok := idx.content[property]
	if !ok {
		byDoc = make(map[docid.DocID][]byte)
		idx.content[property] = byDoc
	}
	byDoc[doc] = []byte(content)
	if doc > idx.maxDoc {
		idx.maxDoc = doc
	}
}

// SetDirty marks the index dirty, simulating a concurrent rebuild so
// index.Pin's refresh path can be exercised in tests.
func (idx *Index) SetDirty(dirty bool) {
	idx.mu.Lock()
	idx.dirty = dirty
	idx.mu.Unlock()
}

// MaxDoc implements index.Reader.
func (idx *Index) MaxDoc() docid.DocID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.maxDoc
}

// IsDirty implements index.Reader.
func (idx *Index) IsDirty() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dirty
}

// GetTermReader implements index.Reader.
func (idx *Index) GetTermReader(col index.CollectionID) (index.TermReader, error) {
	return &termReader{idx: idx}, nil
}

// GetDocumentContent implements index.DocumentManager.
func (idx *Index) GetDocumentContent(doc docid.DocID, property string) ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byDoc, ok := idx.content[property]
	if !ok {
		return nil, nil
	}
	return byDoc[doc], nil
}

// MakeRangeQuery implements index.Reader, evaluating op against every
// document's recorded numeric literal for property via a simple linear
// scan — adequate for a reference/test index, not a production B-tree.
func (idx *Index) MakeRangeQuery(op predicate.Operation, property string, values []predicate.Value, out *bitmap.Bitmap) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byDoc := idx.numeric[property]
	for doc, v := range byDoc {
		if matches(op, v, values) {
			out.Add(doc)
		}
	}
	return nil
}

// GetDocsByNumericValue implements index.Reader.
func (idx *Index) GetDocsByNumericValue(col index.CollectionID, property string, value predicate.Value, out *bitmap.Bitmap) error {
	return idx.MakeRangeQuery(predicate.Equal, property, []predicate.Value{value}, out)
}

// SeekTermFromBTreeIndex implements index.Reader.
func (idx *Index) SeekTermFromBTreeIndex(col index.CollectionID, property string, value predicate.Value) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, v := range idx.numeric[property] {
		if compareValues(v, value) == 0 {
			return true, nil
		}
	}
	return false, nil
}

// matches evaluates a single predicate operation against a stored value.
func matches(op predicate.Operation, v predicate.Value, values []predicate.Value) bool {
	switch op {
	case predicate.Equal:
		return len(values) == 1 && compareValues(v, values[0]) == 0
	case predicate.NotEqual:
		return len(values) == 1 && compareValues(v, values[0]) != 0
	case predicate.Greater:
		return len(values) == 1 && compareValues(v, values[0]) > 0
	case predicate.GreaterEqual:
		return len(values) == 1 && compareValues(v, values[0]) >= 0
	case predicate.Less:
		return len(values) == 1 && compareValues(v, values[0]) < 0
	case predicate.LessEqual:
		return len(values) == 1 && compareValues(v, values[0]) <= 0
	case predicate.Between:
		return len(values) == 2 && compareValues(v, values[0]) >= 0 && compareValues(v, values[1]) <= 0
	case predicate.In:
		for _, want := range values {
			if compareValues(v, want) == 0 {
				return true
			}
		}
		return false
	case predicate.NotIn:
		for _, want := range values {
			if compareValues(v, want) == 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// compareValues returns -1/0/1 comparing a and b numerically (or
// lexically, for strings).
func compareValues(a, b predicate.Value) int {
	switch {
	case a.IsStr || b.IsStr:
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	case a.IsFloat || b.IsFloat:
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	default:
		ai, bi := asInt(a), asInt(b)
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
}

func asFloat(v predicate.Value) float64 {
	switch {
	case v.IsFloat:
		return v.Float
	case v.IsInt:
		return float64(v.Int)
	case v.IsUint:
		return float64(v.Uint)
	default:
		return 0
	}
}

func asInt(v predicate.Value) int64 {
	switch {
	case v.IsInt:
		return v.Int
	case v.IsUint:
		return int64(v.Uint)
	default:
		return 0
	}
}

// termReader implements index.TermReader over an Index snapshot.
type termReader struct {
	idx     *Index
	current *posting
}

func (t *termReader) Seek(property string, termID query.TermID) bool {
	t.idx.mu.RLock()
	defer t.idx.mu.RUnlock()

	byTerm, ok := t.idx.postings[property]
	if !ok {
		t.current = nil
		return false
	}
	p, ok := byTerm[termID]
	t.current = p
	return ok
}

func (t *termReader) TermDocFreqs() (index.PostingReader, error) {
	if t.current == nil {
		return nil, ErrNoPostingList
	}
	return newPostingReader(t.current, false), nil
}

func (t *termReader) TermPositions() (index.PostingReader, error) {
	if t.current == nil {
		return nil, ErrNoPostingList
	}
	return newPostingReader(t.current, true), nil
}

func (t *termReader) Close() {}

// postingReader implements index.PostingReader over one posting's sorted
// document ids.
type postingReader struct {
	docs          []docid.DocID
	positionsByID map[docid.DocID][]int
	withPositions bool
	idx           int // -1 before first Next/SkipTo
	df            uint64
}

func newPostingReader(p *posting, withPositions bool) *postingReader {
	docs := make([]docid.DocID, 0, p.docs.GetCardinality())
	it := p.docs.Iterator()
	for it.HasNext() {
		docs = append(docs, docid.DocID(it.Next()))
	}
	return &postingReader{
		docs:          docs,
		positionsByID: p.positions,
		withPositions: withPositions,
		idx:           -1,
		df:            uint64(len(docs)),
	}
}

func (r *postingReader) Doc() docid.DocID {
	if r.idx < 0 || r.idx >= len(r.docs) {
		return docid.Unassigned
	}
	return r.docs[r.idx]
}

func (r *postingReader) Next() bool {
	r.idx++
	return r.idx < len(r.docs)
}

func (r *postingReader) SkipTo(target docid.DocID) bool {
	start := r.idx
	if start < 0 {
		start = 0
	}
	i := sort.Search(len(r.docs)-start, func(i int) bool { return r.docs[start+i] >= target }) + start
	r.idx = i
	return r.idx < len(r.docs)
}

func (r *postingReader) DF() uint64 { return r.df }

func (r *postingReader) Freq() uint32 {
	if r.idx < 0 || r.idx >= len(r.docs) {
		return 0
	}
	return uint32(len(r.positionsByID[r.docs[r.idx]]))
}

func (r *postingReader) Positions() []int {
	if !r.withPositions || r.idx < 0 || r.idx >= len(r.docs) {
		return nil
	}
	return r.positionsByID[r.docs[r.idx]]
}

func (r *postingReader) Close() {}

// TermDictionary assigns stable query.TermIDs to surface strings, letting
// test fixtures build a query.Tree and an Index from the same plain-text
// vocabulary. Tokenization itself (stemming, stopwording) is explicitly out
// of scope for this module (spec.md §1 Non-goals); splitting on whitespace
// is enough to resolve IndexText's fixture text into term ids.
type TermDictionary struct {
	mu   sync.Mutex
	ids  map[string]query.TermID
	next query.TermID
}

// NewTermDictionary constructs an empty dictionary; ids are assigned
// starting at 1 (0 is not reserved by query.TermID, but avoiding it keeps
// fixtures visually distinct from docid.Unassigned).
func NewTermDictionary() *TermDictionary {
	return &TermDictionary{ids: make(map[string]query.TermID), next: 1}
}

// ID returns surface's term id, assigning a new one on first use.
func (d *TermDictionary) ID(surface string) query.TermID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.ids[surface]; ok {
		return id
	}
	id := d.next
	d.next++
	d.ids[surface] = id
	return id
}

// IndexText splits text on whitespace, resolves each word through dict,
// and indexes every occurrence into property at its word offset, then
// stores text verbatim as doc's content for property (so unigram wildcard
// matching and phrase iterators operate over the same fixture text).
func (idx *Index) IndexText(property string, doc docid.DocID, text string, dict *TermDictionary) {
	words := strings.Fields(text)
	for position, word := range words {
		idx.AddTerm(property, dict.ID(strings.ToLower(word)), doc, position)
	}
	idx.SetContent(property, doc, text)
}
