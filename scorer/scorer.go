// Package scorer implements BM25-based relevance scoring over the
// per-property term slots an IteratorBuilder assigns while constructing a
// query's iterator tree, and the top-level MultiPropertyScorer that
// synchronizes and combines per-property iterators into one ranked result
// (spec.md §4.9).
//
// Grounded on the teacher's index.go BM25Parameters / DefaultBM25Parameters
// / calculateIDF / calculateBM25Score, generalized from a single global
// corpus to one IDF/length-normalization basis per indexed property.
package scorer

import (
	"math"

	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/iterator"
)

// Parameters holds the BM25 tuning constants.
type Parameters struct {
	K1 float64 // term-frequency saturation, typical 1.2-2.0
	B  float64 // length normalization, typical 0.75
}

// DefaultParameters returns the standard BM25 parameters.
func DefaultParameters() Parameters {
	return Parameters{K1: 1.5, B: 0.75}
}

// idf computes the BM25 inverse document frequency with +1 smoothing, as
// in the teacher's calculateIDF.
func idf(df, totalDocs uint64) float64 {
	if df == 0 || totalDocs == 0 {
		return 0
	}
	n := float64(totalDocs)
	d := float64(df)
	return math.Log((n-d+0.5)/(d+0.5) + 1.0)
}

// score computes a single term's BM25 contribution, as in the teacher's
// calculateBM25Score inner loop (one term).
func (p Parameters) score(tf uint32, docLen, avgDocLen, idfValue float64) float64 {
	if tf == 0 {
		return 0
	}
	t := float64(tf)
	if avgDocLen <= 0 {
		avgDocLen = docLen
	}
	if avgDocLen <= 0 {
		avgDocLen = 1
	}
	numerator := t * (p.K1 + 1)
	denominator := t + p.K1*(1-p.B+p.B*(docLen/avgDocLen))
	return idfValue * (numerator / denominator)
}

// PropertyConfig carries the corpus statistics a property needs to score
// with: its total indexed document count and average document length, plus
// a relative weight applied when this property's score is fanned into a
// MultiPropertyScorer's total (spec.md §4.9).
type PropertyConfig struct {
	TotalDocs    uint64
	AvgDocLength float64
	Weight       float64
}

// DocLengthSource supplies a document's length in a given property, used
// for length normalization. Implementations typically delegate to the
// Index Reader / Document Manager, both external collaborators.
type DocLengthSource interface {
	DocLength(doc docid.DocID, property string) (length int, ok bool)
}

// TermSlot records which property a given term-index slot (the stable
// integer IteratorBuilder assigns each term leaf during construction, from
// one counter shared by every property of the query) belongs to.
type TermSlot struct {
	Property string
}

// BM25PropertyScorer implements iterator.PropertyScorer by routing a
// leaf's (termIndex, df, tf) into the BM25 formula for that term's
// property, weighting the result by the property's configured weight.
// It is the per-term scoring engine a MultiPropertyScorer drives each of
// its property iterators with.
//
// Per DESIGN.md's open-question resolution, a term whose property carries
// no PropertyConfig (one the caller never configured to score) contributes
// zero rather than erroring — absent scoring inputs should degrade
// gracefully, matching the permissive style of FilterBuilder.Prepare.
type BM25PropertyScorer struct {
	params     Parameters
	slots      []TermSlot
	properties map[string]PropertyConfig
	lengths    DocLengthSource
}

// NewBM25PropertyScorer builds a scorer where slots[i] names the property
// backing term-index i, properties supplies each named property's corpus
// statistics and weight, and lengths (optional; may be nil, in which case
// every document is assumed to be of average length) supplies per-document
// lengths for normalization.
func NewBM25PropertyScorer(params Parameters, slots []TermSlot, properties map[string]PropertyConfig, lengths DocLengthSource) *BM25PropertyScorer {
	return &BM25PropertyScorer{params: params, slots: slots, properties: properties, lengths: lengths}
}

// TermScore implements iterator.PropertyScorer.
func (m *BM25PropertyScorer) TermScore(doc docid.DocID, termIndex uint32, df uint64, tf uint32) float32 {
	if int(termIndex) >= len(m.slots) {
		return 0
	}
	slot := m.slots[termIndex]
	cfg, ok := m.properties[slot.Property]
	if !ok {
		return 0
	}

	docLen := cfg.AvgDocLength
	if m.lengths != nil {
		if l, ok := m.lengths.DocLength(doc, slot.Property); ok {
			docLen = float64(l)
		}
	}

	raw := m.params.score(tf, docLen, cfg.AvgDocLength, idf(df, cfg.TotalDocs))
	return float32(raw * cfg.Weight)
}

// MultiPropertyScorer is the top-level per-query object the query facade
// exposes (spec.md §4.9, §6's `prepareIterator(...) -> Option<MultiPropertyScorer>`):
// for each indexed property named in the query it holds one top-level
// DocumentIterator. At query time it synchronizes those property iterators
// on a common candidate doc-id — the same min-doc union discipline
// iterator.OrIterator uses — and linearly combines the per-property scores
// of whichever properties are currently positioned at that candidate,
// each already weighted per its BM25PropertyScorer.PropertyConfig.
type MultiPropertyScorer struct {
	term       *BM25PropertyScorer
	properties map[string]iterator.DocumentIterator
	doc        docid.DocID
	started    bool
}

// NewMultiPropertyScorer builds a MultiPropertyScorer over one top-level
// iterator per property (properties maps property name to the iterator
// builder.Builder.Prepare returned for it) and the shared term scorer that
// routes every leaf's term-index slot back to its owning property.
// Properties with a nil iterator (the property contributed nothing to the
// query) are dropped.
func NewMultiPropertyScorer(term *BM25PropertyScorer, properties map[string]iterator.DocumentIterator) *MultiPropertyScorer {
	live := make(map[string]iterator.DocumentIterator, len(properties))
	for name, it := range properties {
		if it != nil {
			live[name] = it
		}
	}
	return &MultiPropertyScorer{term: term, properties: live}
}

// Empty reports whether no property contributed an iterator at all — the
// EmptyQuery condition (spec.md §7): "no property built a non-empty top
// iterator" should surface as a nil *MultiPropertyScorer from the facade,
// not a non-nil scorer with nothing inside it.
func (m *MultiPropertyScorer) Empty() bool { return len(m.properties) == 0 }

// Doc returns the current candidate doc-id, or iterator.Exhausted before
// the first Next/SkipTo call or once every property is exhausted.
func (m *MultiPropertyScorer) Doc() docid.DocID { return m.doc }

// Next advances to the next candidate doc-id shared by any property.
func (m *MultiPropertyScorer) Next() bool {
	if m.Empty() {
		m.doc = iterator.Exhausted
		return false
	}
	if !m.started {
		m.started = true
		return m.SkipTo(1)
	}
	return m.SkipTo(m.doc + 1)
}

// SkipTo advances every property iterator to at least target and
// re-synchronizes on the new minimum doc-id among them.
func (m *MultiPropertyScorer) SkipTo(target docid.DocID) bool {
	m.started = true
	for _, it := range m.properties {
		if it.Doc() != iterator.Exhausted && it.Doc() >= target {
			continue
		}
		it.SkipTo(target)
	}
	d, ok := minPropertyDoc(m.properties)
	if !ok {
		m.doc = iterator.Exhausted
		return false
	}
	m.doc = d
	return true
}

// Score linearly combines every property currently positioned at the
// scorer's candidate doc (spec.md §4.9).
func (m *MultiPropertyScorer) Score() float32 {
	var total float32
	for _, it := range m.properties {
		if it.Doc() == m.doc {
			total += it.Score(m.term)
		}
	}
	return total
}

// Close releases every property's iterator.
func (m *MultiPropertyScorer) Close() {
	for _, it := range m.properties {
		it.Close()
	}
}

func minPropertyDoc(properties map[string]iterator.DocumentIterator) (docid.DocID, bool) {
	var min docid.DocID
	found := false
	for _, it := range properties {
		d := it.Doc()
		if d == iterator.Exhausted {
			continue
		}
		if !found || d < min {
			min = d
			found = true
		}
	}
	return min, found
}
