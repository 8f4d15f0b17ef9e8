// Package iterator implements the polymorphic cursor over doc-ids that the
// query-evaluation core advances in lock-step across a query's matched
// properties (spec.md §4.4-§4.9).
//
// Every concrete iterator is a small struct implementing DocumentIterator;
// there is no open-ended class hierarchy (spec.md §9's "deep class
// hierarchy" redesign flag) — leaf and composite variants are plain Go
// types behind one interface.
package iterator

import (
	"errors"

	"github.com/wizenheimer/qcore/docid"
)

// Sentinel errors, in the teacher's package-level-var style (see the
// teacher's index.go ErrNoPostingList etc.).
var (
	ErrEmptyComposite  = errors.New("iterator: composite has no usable children")
	ErrStandaloneNot   = errors.New("iterator: NOT cannot be the sole top-level iterator")
	ErrAlreadyHasOwner = errors.New("iterator: reader already attached to another iterator")
)

// Exhausted is the sentinel doc-id returned once an iterator has no more
// matches.
const Exhausted = docid.Unassigned

// PropertyScorer computes a per-leaf-term contribution to a document's
// score. BM25PropertyScorer (package scorer) implements this; leaves call
// it with the stable term-index slot the caller assigned for this term, so
// the scorer can route term frequency into a dense per-property TF vector
// (spec.md's "term-index map").
type PropertyScorer interface {
	TermScore(doc docid.DocID, termIndex uint32, df uint64, tf uint32) float32
}

// DocumentIterator is the abstract contract every leaf and composite
// iterator implements (spec.md §4.4).
type DocumentIterator interface {
	// Doc returns the current position. Monotone non-decreasing across
	// Next/SkipTo calls; Exhausted once the iterator is spent.
	Doc() docid.DocID
	// Next advances to the next matching document; false on exhaustion.
	Next() bool
	// SkipTo advances to the first matching document >= target; false on
	// exhaustion. Never moves backwards.
	SkipTo(target docid.DocID) bool
	// DF returns a document-frequency-like statistic: the leaf posting
	// list's df, or a composite-dependent aggregate, used as a TF-IDF
	// input upstream.
	DF() uint64
	// Score computes this iterator's contribution to the current
	// document's score using scorer.
	Score(scorer PropertyScorer) float32
	// Add attaches a child iterator. Leaves return an error; composites
	// accept any number of children.
	Add(child DocumentIterator) error
	// Empty reports whether this iterator (composite) has no usable
	// children and should be dropped by its parent.
	Empty() bool
	// Close releases every posting reader this iterator (and its
	// subtree) owns, exactly once. Safe to call on a partially built
	// iterator.
	Close()
}

// CloseAll closes every iterator in subtrees, ignoring nils. Used by the
// builder to release a set of partially-constructed siblings on failure.
func CloseAll(subtrees ...DocumentIterator) {
	for _, it := range subtrees {
		if it != nil {
			it.Close()
		}
	}
}

// alignMax advances every iterator in children to at least target via
// SkipTo, returning the resulting max doc and whether all children are
// still live. Used by AND's lock-step alignment (spec.md §4.6).
func alignMax(children []DocumentIterator, target docid.DocID) (docid.DocID, bool) {
	max := target
	for _, c := range children {
		if !c.SkipTo(max) {
			return Exhausted, false
		}
		if d := c.Doc(); d > max {
			max = d
		}
	}
	return max, true
}

// minDoc returns the smallest current Doc() among live children, and
// whether any child is still live.
func minDoc(children []DocumentIterator) (docid.DocID, bool) {
	var min docid.DocID
	found := false
	for _, c := range children {
		d := c.Doc()
		if d == Exhausted {
			continue
		}
		if !found || d < min {
			min = d
			found = true
		}
	}
	return min, found
}
