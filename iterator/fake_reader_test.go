package iterator

import "github.com/wizenheimer/qcore/docid"

// fakePostingReader is a minimal in-memory index.PostingReader over a fixed
// sorted doc list, used to drive leaf and composite iterators in tests
// without needing a real index package.
type fakePostingReader struct {
	docs   []docid.DocID
	idx    int
	closed bool
}

func newFakePostingReader(docs ...docid.DocID) *fakePostingReader {
	return &fakePostingReader{docs: docs, idx: -1}
}

func (f *fakePostingReader) Doc() docid.DocID {
	if f.idx < 0 || f.idx >= len(f.docs) {
		return Exhausted
	}
	return f.docs[f.idx]
}

func (f *fakePostingReader) Next() bool {
	f.idx++
	return f.idx < len(f.docs)
}

func (f *fakePostingReader) SkipTo(target docid.DocID) bool {
	if f.idx < 0 {
		f.idx = 0
	}
	for f.idx < len(f.docs) && f.docs[f.idx] < target {
		f.idx++
	}
	return f.idx < len(f.docs)
}

func (f *fakePostingReader) DF() uint64 { return uint64(len(f.docs)) }

func (f *fakePostingReader) Freq() uint32 { return 1 }

func (f *fakePostingReader) Positions() []int { return nil }

func (f *fakePostingReader) Close() { f.closed = true }

// fakeScorer is a PropertyScorer stub returning a constant score, so
// composite tests can assert aggregation (sum) without depending on BM25.
type fakeScorer struct{ value float32 }

func (s fakeScorer) TermScore(doc docid.DocID, termIndex uint32, df uint64, tf uint32) float32 {
	return s.value
}

// leafFromDocs builds a started TermDocumentIterator positioned before its
// first doc, ready for Next/SkipTo, from a fake posting reader.
func leafFromDocs(docs ...docid.DocID) *TermDocumentIterator {
	l := NewTermDocumentIterator(0)
	l.Set(newFakePostingReader(docs...))
	return l
}
