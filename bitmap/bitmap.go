// Package bitmap implements the compressed document-id set used by filter
// construction: a run-length-compressed set of 32-bit doc-ids with logical
// AND/OR and ascending streaming iteration.
//
// The representation is backed by github.com/RoaringBitmap/roaring, the
// same compressed-bitmap library the teacher search engine uses for its
// document-level posting storage (see the teacher's DocBitmaps field).
// Roaring already gives us the run-length-compressed, word-oriented storage
// the spec describes; Bitmap adds the narrow operation set §4.1 requires
// (And, Or, ascending Iterator with SkipTo, and the EWAH-flavored
// AddStreamOfEmptyWords builder primitive used to seed the universe).
package bitmap

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/wizenheimer/qcore/docid"
)

// Bitmap is a semantically immutable-on-read set of DocIDs. And/Or always
// return a fresh Bitmap; the receiver and argument are left unchanged.
type Bitmap struct {
	rb *roaring.Bitmap
}

// New returns an empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// FromRoaring wraps an existing roaring.Bitmap without copying it. Callers
// must not mutate rb afterwards; Bitmap's And/Or never mutate in place, but
// Add does.
func FromRoaring(rb *roaring.Bitmap) *Bitmap {
	if rb == nil {
		rb = roaring.New()
	}
	return &Bitmap{rb: rb}
}

// Add sets the bit for doc. This is the only mutating operation; it exists
// for index construction and test fixtures, not for the filter-composition
// path (which only ever produces fresh bitmaps via And/Or/builder).
func (b *Bitmap) Add(doc docid.DocID) {
	b.rb.Add(uint32(doc))
}

// Contains reports whether doc is a member.
func (b *Bitmap) Contains(doc docid.DocID) bool {
	return b.rb.Contains(uint32(doc))
}

// Cardinality returns the number of set bits.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// And returns the intersection of b and other. Neither input is modified.
func (b *Bitmap) And(other *Bitmap) *Bitmap {
	if other == nil {
		return New()
	}
	return &Bitmap{rb: roaring.And(b.rb, other.rb)}
}

// Or returns the union of b and other. Neither input is modified.
func (b *Bitmap) Or(other *Bitmap) *Bitmap {
	if other == nil {
		return b.Clone()
	}
	return &Bitmap{rb: roaring.Or(b.rb, other.rb)}
}

// Clone returns an independent copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// Iterator returns an ascending DocID cursor over b.
func (b *Bitmap) Iterator() *Iterator {
	return &Iterator{it: b.rb.Iterator()}
}

// Iterator is an ascending cursor over a Bitmap's members.
type Iterator struct {
	it      roaring.IntPeekable
	current docid.DocID
	started bool
}

// Next advances to the next member in ascending order. Returns false once
// exhausted.
func (it *Iterator) Next() bool {
	if !it.it.HasNext() {
		it.started = true
		return false
	}
	it.current = docid.DocID(it.it.Next())
	it.started = true
	return true
}

// SkipTo advances to the first member >= target that Next/SkipTo has not
// already returned, returning false if none exists. The member the cursor
// currently sits on counts as returned, so it is never yielded again even
// when it is >= target.
func (it *Iterator) SkipTo(target docid.DocID) bool {
	it.it.AdvanceIfNeeded(uint32(target))
	if !it.it.HasNext() {
		return false
	}
	it.current = docid.DocID(it.it.PeekNext())
	if it.current < target {
		// AdvanceIfNeeded only guarantees position >= previous cursor; walk
		// forward manually for the remaining (rare) gap.
		for it.it.HasNext() && it.it.PeekNext() < uint32(target) {
			it.it.Next()
		}
		if !it.it.HasNext() {
			return false
		}
		it.current = docid.DocID(it.it.PeekNext())
	}
	it.it.Next()
	it.started = true
	return true
}

// Doc returns the current position. Only valid after Next/SkipTo returns true.
func (it *Iterator) Doc() docid.DocID {
	return it.current
}
