package scorer

import (
	"math"
	"testing"

	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/iterator"
)

type fakeLengths struct {
	lengths map[docid.DocID]int
}

func (f *fakeLengths) DocLength(doc docid.DocID, property string) (int, bool) {
	l, ok := f.lengths[doc]
	return l, ok
}

func TestBM25PropertyScorer_TermScore_HigherTFScoresHigher(t *testing.T) {
	slots := []TermSlot{{Property: "title"}}
	props := map[string]PropertyConfig{
		"title": {TotalDocs: 100, AvgDocLength: 10, Weight: 1},
	}
	s := NewBM25PropertyScorer(DefaultParameters(), slots, props, nil)

	low := s.TermScore(1, 0, 5, 1)
	high := s.TermScore(1, 0, 5, 5)
	if !(high > low) {
		t.Fatalf("higher term frequency should score higher: low=%v high=%v", low, high)
	}
}

func TestBM25PropertyScorer_TermScore_RarerTermScoresHigher(t *testing.T) {
	slots := []TermSlot{{Property: "title"}}
	props := map[string]PropertyConfig{
		"title": {TotalDocs: 1000, AvgDocLength: 10, Weight: 1},
	}
	s := NewBM25PropertyScorer(DefaultParameters(), slots, props, nil)

	common := s.TermScore(1, 0, 900, 2)
	rare := s.TermScore(1, 0, 5, 2)
	if !(rare > common) {
		t.Fatalf("rarer term (lower df) should score higher: common=%v rare=%v", common, rare)
	}
}

func TestBM25PropertyScorer_TermScore_UnconfiguredPropertyReturnsZero(t *testing.T) {
	slots := []TermSlot{{Property: "title"}}
	s := NewBM25PropertyScorer(DefaultParameters(), slots, map[string]PropertyConfig{}, nil)

	if got := s.TermScore(1, 0, 10, 2); got != 0 {
		t.Fatalf("TermScore() = %v, want 0 for an unconfigured property", got)
	}
}

func TestBM25PropertyScorer_TermScore_OutOfRangeTermIndexReturnsZero(t *testing.T) {
	s := NewBM25PropertyScorer(DefaultParameters(), nil, nil, nil)
	if got := s.TermScore(1, 5, 10, 2); got != 0 {
		t.Fatalf("TermScore() = %v, want 0 for an out-of-range term index", got)
	}
}

func TestBM25PropertyScorer_TermScore_ZeroTermFrequencyScoresZero(t *testing.T) {
	slots := []TermSlot{{Property: "title"}}
	props := map[string]PropertyConfig{
		"title": {TotalDocs: 100, AvgDocLength: 10, Weight: 1},
	}
	s := NewBM25PropertyScorer(DefaultParameters(), slots, props, nil)
	if got := s.TermScore(1, 0, 10, 0); got != 0 {
		t.Fatalf("TermScore() = %v, want 0 for tf=0", got)
	}
}

func TestBM25PropertyScorer_TermScore_WeightScalesLinearly(t *testing.T) {
	slots := []TermSlot{{Property: "title"}}
	base := map[string]PropertyConfig{"title": {TotalDocs: 100, AvgDocLength: 10, Weight: 1}}
	doubled := map[string]PropertyConfig{"title": {TotalDocs: 100, AvgDocLength: 10, Weight: 2}}

	s1 := NewBM25PropertyScorer(DefaultParameters(), slots, base, nil)
	s2 := NewBM25PropertyScorer(DefaultParameters(), slots, doubled, nil)

	got1 := s1.TermScore(1, 0, 10, 3)
	got2 := s2.TermScore(1, 0, 10, 3)
	if math.Abs(float64(got2)-2*float64(got1)) > 1e-6 {
		t.Fatalf("doubling weight should double the score: got1=%v got2=%v", got1, got2)
	}
}

func TestBM25PropertyScorer_TermScore_UsesPerDocumentLengthWhenAvailable(t *testing.T) {
	slots := []TermSlot{{Property: "title"}}
	props := map[string]PropertyConfig{"title": {TotalDocs: 100, AvgDocLength: 10, Weight: 1}}
	lengths := &fakeLengths{lengths: map[docid.DocID]int{1: 10, 2: 1000}}
	s := NewBM25PropertyScorer(DefaultParameters(), slots, props, lengths)

	shortDoc := s.TermScore(1, 0, 10, 2)
	longDoc := s.TermScore(2, 0, 10, 2)
	if !(shortDoc > longDoc) {
		t.Fatalf("a much longer document should be penalized by length normalization: short=%v long=%v", shortDoc, longDoc)
	}
}

// fakeDocIterator is a minimal iterator.DocumentIterator over a fixed,
// ascending doc list with a constant score, used to test MultiPropertyScorer's
// synchronization/combination logic independent of BM25PropertyScorer's own
// routing (covered separately above).
type fakeDocIterator struct {
	docs     []docid.DocID
	idx      int
	scoreVal float32
}

func newFakeDocIterator(scoreVal float32, docs ...docid.DocID) *fakeDocIterator {
	return &fakeDocIterator{docs: docs, idx: -1, scoreVal: scoreVal}
}

func (f *fakeDocIterator) Doc() docid.DocID {
	if f.idx < 0 || f.idx >= len(f.docs) {
		return iterator.Exhausted
	}
	return f.docs[f.idx]
}

func (f *fakeDocIterator) Next() bool {
	f.idx++
	return f.idx < len(f.docs)
}

func (f *fakeDocIterator) SkipTo(target docid.DocID) bool {
	if f.idx < 0 {
		f.idx = 0
	}
	for f.idx < len(f.docs) && f.docs[f.idx] < target {
		f.idx++
	}
	return f.idx < len(f.docs)
}

func (f *fakeDocIterator) DF() uint64 { return uint64(len(f.docs)) }

func (f *fakeDocIterator) Score(iterator.PropertyScorer) float32 { return f.scoreVal }

func (f *fakeDocIterator) Add(iterator.DocumentIterator) error { return nil }

func (f *fakeDocIterator) Empty() bool { return len(f.docs) == 0 }

func (f *fakeDocIterator) Close() {}

func TestMultiPropertyScorer_Next_SynchronizesAcrossProperties(t *testing.T) {
	title := newFakeDocIterator(1, 1, 2, 5)
	description := newFakeDocIterator(1, 2, 3)

	term := NewBM25PropertyScorer(DefaultParameters(), nil, nil, nil)
	m := NewMultiPropertyScorer(term, map[string]iterator.DocumentIterator{
		"title":       title,
		"description": description,
	})
	defer m.Close()

	var got []int
	for m.Next() {
		got = append(got, int(m.Doc()))
	}
	want := []int{1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMultiPropertyScorer_Score_SumsPropertiesAtCurrentDoc(t *testing.T) {
	title := newFakeDocIterator(1, 1, 2)
	description := newFakeDocIterator(5, 2)

	term := NewBM25PropertyScorer(DefaultParameters(), nil, nil, nil)
	m := NewMultiPropertyScorer(term, map[string]iterator.DocumentIterator{
		"title":       title,
		"description": description,
	})
	defer m.Close()

	var atTwo, atOne float32
	for m.Next() {
		switch m.Doc() {
		case 2:
			atTwo = m.Score()
		case 1:
			atOne = m.Score()
		}
	}
	if atOne != 1 {
		t.Fatalf("atOne = %v, want 1 (only title matches doc 1)", atOne)
	}
	if atTwo != 6 {
		t.Fatalf("atTwo = %v, want 6 (title + description both match doc 2)", atTwo)
	}
}

func TestMultiPropertyScorer_Empty_NoPropertiesContributed(t *testing.T) {
	m := NewMultiPropertyScorer(NewBM25PropertyScorer(DefaultParameters(), nil, nil, nil), map[string]iterator.DocumentIterator{
		"title": nil,
	})
	if !m.Empty() {
		t.Fatalf("Empty() = false, want true when every property's iterator was nil")
	}
	if m.Next() {
		t.Fatalf("Next() = true, want false on an empty MultiPropertyScorer")
	}
}
