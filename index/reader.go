// Package index defines the Index Reader contract this module consumes
// (spec.md §6). The Index Reader itself — term dictionaries, posting
// lists, positions, numeric B-tree indexes, compressed range scans — is an
// external collaborator and out of scope for this module; only the
// interfaces it must satisfy live here.
package index

import (
	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/predicate"
	"github.com/wizenheimer/qcore/query"
)

// PostingReader is a posting-list cursor for a single (termID, property)
// pair, optionally carrying position information.
type PostingReader interface {
	// Doc returns the current document, or docid.Unassigned before the
	// first Next/SkipTo call.
	Doc() docid.DocID
	// Next advances to the next document; false on exhaustion.
	Next() bool
	// SkipTo advances to the first document >= target; false on exhaustion.
	SkipTo(target docid.DocID) bool
	// DF returns the total document frequency for this posting list.
	DF() uint64
	// Freq returns the term frequency in the current document.
	Freq() uint32
	// Positions returns the intra-document positions of the term in the
	// current document, in ascending order. Only meaningful when the
	// reader was obtained with positions enabled (TermPositions).
	Positions() []int
	// Close releases any resources (buffers, file handles) held by the
	// reader. Safe to call more than once.
	Close()
}

// TermReader addresses posting lists for a single property within a
// collection.
type TermReader interface {
	// Seek positions the reader at termID within property, returning false
	// if the term does not occur in this property.
	Seek(property string, termID query.TermID) bool
	// TermDocFreqs returns a doc-only posting reader for the term last
	// targeted by Seek.
	TermDocFreqs() (PostingReader, error)
	// TermPositions returns a position-carrying posting reader for the term
	// last targeted by Seek.
	TermPositions() (PostingReader, error)
	// Close releases the term reader itself.
	Close()
}

// CollectionID identifies a collection (shard) within the index.
type CollectionID uint32

// Reader is the full Index Reader contract (spec.md §6).
type Reader interface {
	// MaxDoc returns the largest assigned document id.
	MaxDoc() docid.DocID
	// IsDirty reports whether the underlying index has been rebuilt since
	// this handle was obtained.
	IsDirty() bool
	// GetTermReader returns a term reader for the given collection.
	GetTermReader(col CollectionID) (TermReader, error)
	// MakeRangeQuery evaluates a filtering predicate's range/equality
	// operation against property, writing matching doc ids into out.
	MakeRangeQuery(op predicate.Operation, property string, values []predicate.Value, out *bitmap.Bitmap) error
	// GetDocsByNumericValue returns the bitmap of documents whose numeric
	// property equals value.
	GetDocsByNumericValue(col CollectionID, property string, value predicate.Value, out *bitmap.Bitmap) error
	// SeekTermFromBTreeIndex reports whether value occurs at all in
	// property's numeric B-tree index, without materializing doc ids.
	SeekTermFromBTreeIndex(col CollectionID, property string, value predicate.Value) (bool, error)
}

// DocumentManager provides raw document content lookup, consumed only by
// the unigram wildcard iterator.
type DocumentManager interface {
	GetDocumentContent(doc docid.DocID, property string) ([]byte, error)
}

// Snapshot pins a Reader handle for the lifetime of a single query, so that
// a mid-query index rebuild (IsDirty flipping true) never changes the
// iterators already under construction. Builders obtain one Snapshot per
// query (spec.md §5: "Handle refresh is atomic w.r.t. this query").
type Snapshot struct {
	Reader Reader
}

// Pin returns a Snapshot of r, refreshing first if dirty. refresh is called
// to obtain a fresh handle; it is the caller's (IndexManager-equivalent)
// responsibility to implement the actual rebuild.
func Pin(r Reader, refresh func() Reader) Snapshot {
	if r.IsDirty() && refresh != nil {
		if fresh := refresh(); fresh != nil {
			r = fresh
		}
	}
	return Snapshot{Reader: r}
}
