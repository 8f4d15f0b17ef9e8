package iterator

import (
	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/index"
)

// TermDocumentIterator wraps a posting-list reader for a single (termID,
// property) pair. The reader is always attached with Set, whether it came
// from the builder's term-prefetch pass or from the builder's own lazy seek;
// the leaf never seeks a term itself.
//
// Grounded on original_source/.../QueryBuilder.cpp's TermDocumentIterator
// usage: constructed, then Set() with a reader; the Not flag inverts its
// contribution in the parent composite.
type TermDocumentIterator struct {
	termIndex uint32
	not       bool
	reader    index.PostingReader
}

// NewTermDocumentIterator constructs a leaf with no reader attached yet;
// callers must Set a reader before the leaf can match anything.
func NewTermDocumentIterator(termIndex uint32) *TermDocumentIterator {
	return &TermDocumentIterator{termIndex: termIndex}
}

// Set attaches a pre-seeked reader obtained during the builder's term
// prefetch pass.
func (t *TermDocumentIterator) Set(r index.PostingReader) {
	t.reader = r
}

// SetNot marks this leaf as negated within its parent composite.
func (t *TermDocumentIterator) SetNot(not bool) { t.not = not }

// Not reports whether this leaf is negated.
func (t *TermDocumentIterator) Not() bool { return t.not }

// Accept advances the attached reader to its first document. It does not
// seek a term: with no reader attached it returns false, as it does when
// the attached posting list is empty.
func (t *TermDocumentIterator) Accept() bool {
	if t.reader == nil {
		return false
	}
	return t.reader.Next()
}

func (t *TermDocumentIterator) Doc() docid.DocID {
	if t.reader == nil {
		return Exhausted
	}
	return t.reader.Doc()
}

func (t *TermDocumentIterator) Next() bool {
	if t.reader == nil {
		return false
	}
	return t.reader.Next()
}

func (t *TermDocumentIterator) SkipTo(target docid.DocID) bool {
	if t.reader == nil {
		return false
	}
	return t.reader.SkipTo(target)
}

func (t *TermDocumentIterator) DF() uint64 {
	if t.reader == nil {
		return 0
	}
	return t.reader.DF()
}

func (t *TermDocumentIterator) Score(scorer PropertyScorer) float32 {
	if t.reader == nil || scorer == nil {
		return 0
	}
	return scorer.TermScore(t.reader.Doc(), t.termIndex, t.reader.DF(), t.reader.Freq())
}

func (t *TermDocumentIterator) Add(DocumentIterator) error { return ErrEmptyComposite }

func (t *TermDocumentIterator) Empty() bool { return t.reader == nil }

func (t *TermDocumentIterator) Close() {
	if t.reader != nil {
		t.reader.Close()
		t.reader = nil
	}
}

// SearchTermDocumentIterator is the unigram-search-mode leaf for KEYWORD
// nodes: it supplies match bits (Doc/Next/SkipTo) without contributing to
// ranking (Score always 0).
type SearchTermDocumentIterator struct {
	reader index.PostingReader
}

func NewSearchTermDocumentIterator(r index.PostingReader) *SearchTermDocumentIterator {
	return &SearchTermDocumentIterator{reader: r}
}

func (s *SearchTermDocumentIterator) Doc() docid.DocID {
	if s.reader == nil {
		return Exhausted
	}
	return s.reader.Doc()
}
func (s *SearchTermDocumentIterator) Next() bool {
	if s.reader == nil {
		return false
	}
	return s.reader.Next()
}
func (s *SearchTermDocumentIterator) SkipTo(target docid.DocID) bool {
	if s.reader == nil {
		return false
	}
	return s.reader.SkipTo(target)
}
func (s *SearchTermDocumentIterator) DF() uint64 {
	if s.reader == nil {
		return 0
	}
	return s.reader.DF()
}
func (s *SearchTermDocumentIterator) Score(PropertyScorer) float32        { return 0 }
func (s *SearchTermDocumentIterator) Add(DocumentIterator) error          { return ErrEmptyComposite }
func (s *SearchTermDocumentIterator) Empty() bool                         { return s.reader == nil }
func (s *SearchTermDocumentIterator) Close() {
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
}

// RankTermDocumentIterator is the unigram-search-mode leaf for
// RANK_KEYWORD nodes: it contributes only to ranking. mustMatch (the
// parent AND/OR flag) controls whether its absence should exclude the
// document; set true only when the parent composite is an AND (see
// DESIGN.md open-question resolution).
type RankTermDocumentIterator struct {
	termIndex uint32
	mustMatch bool
	reader    index.PostingReader
}

func NewRankTermDocumentIterator(termIndex uint32, mustMatch bool) *RankTermDocumentIterator {
	return &RankTermDocumentIterator{termIndex: termIndex, mustMatch: mustMatch}
}

func (r *RankTermDocumentIterator) MustMatch() bool { return r.mustMatch }

func (r *RankTermDocumentIterator) Set(reader index.PostingReader) { r.reader = reader }

func (r *RankTermDocumentIterator) Accept() bool {
	if r.reader == nil {
		return false
	}
	return r.reader.Next()
}

func (r *RankTermDocumentIterator) Doc() docid.DocID {
	if r.reader == nil {
		return Exhausted
	}
	return r.reader.Doc()
}
func (r *RankTermDocumentIterator) Next() bool {
	if r.reader == nil {
		return false
	}
	return r.reader.Next()
}
func (r *RankTermDocumentIterator) SkipTo(target docid.DocID) bool {
	if r.reader == nil {
		return false
	}
	return r.reader.SkipTo(target)
}
func (r *RankTermDocumentIterator) DF() uint64 {
	if r.reader == nil {
		return 0
	}
	return r.reader.DF()
}
func (r *RankTermDocumentIterator) Score(scorer PropertyScorer) float32 {
	if r.reader == nil || scorer == nil {
		return 0
	}
	return scorer.TermScore(r.reader.Doc(), r.termIndex, r.reader.DF(), r.reader.Freq())
}
func (r *RankTermDocumentIterator) Add(DocumentIterator) error { return ErrEmptyComposite }
func (r *RankTermDocumentIterator) Empty() bool                { return r.reader == nil }
func (r *RankTermDocumentIterator) Close() {
	if r.reader != nil {
		r.reader.Close()
		r.reader = nil
	}
}

// BitmapIterator wraps a compressed bitmap (from a numeric-filter seek) as
// a posting-list reader; used when the property is a non-string indexed
// filter column (spec.md §4.5).
type BitmapIterator struct {
	it  bitmapCursor
	doc docid.DocID
	df  uint64
}

// bitmapCursor is the minimal ascending-iteration contract BitmapIterator
// needs from a compressed bitmap, avoiding an import of package bitmap
// here so iterator stays decoupled from the concrete bitmap representation.
type bitmapCursor interface {
	Next() bool
	SkipTo(target docid.DocID) bool
	Doc() docid.DocID
}

// NewBitmapIterator wraps it (a bitmap.Iterator) with the given document
// frequency (the bitmap's cardinality).
func NewBitmapIterator(it bitmapCursor, df uint64) *BitmapIterator {
	return &BitmapIterator{it: it, df: df}
}

func (b *BitmapIterator) Doc() docid.DocID { return b.doc }

func (b *BitmapIterator) Next() bool {
	if !b.it.Next() {
		b.doc = Exhausted
		return false
	}
	b.doc = b.it.Doc()
	return true
}

func (b *BitmapIterator) SkipTo(target docid.DocID) bool {
	if b.doc != Exhausted && b.doc >= target {
		return true
	}
	if !b.it.SkipTo(target) {
		b.doc = Exhausted
		return false
	}
	b.doc = b.it.Doc()
	return true
}

func (b *BitmapIterator) DF() uint64 { return b.df }

func (b *BitmapIterator) Score(scorer PropertyScorer) float32 {
	if scorer == nil {
		return 0
	}
	return scorer.TermScore(b.doc, 0, b.df, 1)
}

func (b *BitmapIterator) Add(DocumentIterator) error { return ErrEmptyComposite }
func (b *BitmapIterator) Empty() bool                { return b.it == nil }
func (b *BitmapIterator) Close()                     {}
