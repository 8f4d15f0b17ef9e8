package queryfacade

import (
	"testing"

	"github.com/wizenheimer/qcore/builder"
	"github.com/wizenheimer/qcore/memindex"
	"github.com/wizenheimer/qcore/predicate"
	"github.com/wizenheimer/qcore/query"
	"github.com/wizenheimer/qcore/scorer"
)

func buildTestIndex(t *testing.T) (*memindex.Index, *memindex.TermDictionary) {
	t.Helper()
	idx := memindex.New(1)
	dict := memindex.NewTermDictionary()
	idx.IndexText("title", 1, "quick brown fox", dict)
	idx.IndexText("title", 2, "lazy brown dog", dict)
	idx.IndexText("title", 3, "quick lazy hare", dict)
	idx.SetNumericValue("price", 1, predicate.IntValue(10))
	idx.SetNumericValue("price", 2, predicate.IntValue(20))
	idx.SetNumericValue("price", 3, predicate.IntValue(30))
	return idx, dict
}

func titleProperty() query.Property {
	return query.Property{Name: "title", Type: query.String, IsIndexed: true}
}

func TestFacade_PrepareFilter_IntersectsPredicates(t *testing.T) {
	idx, _ := buildTestIndex(t)
	f := New(idx, nil, 1, idx, 0)

	preds := []predicate.Predicate{
		{Operation: predicate.GreaterEqual, Property: "price", Values: []predicate.Value{predicate.IntValue(20)}},
		{Operation: predicate.LessEqual, Property: "price", Values: []predicate.Value{predicate.IntValue(30)}},
	}
	filt, err := f.PrepareFilter(preds)
	if err != nil {
		t.Fatalf("PrepareFilter: %v", err)
	}
	if filt.Bitmap().Cardinality() != 2 {
		t.Fatalf("cardinality = %d, want 2 (docs 2,3)", filt.Bitmap().Cardinality())
	}
	if !filt.Matches(2) || !filt.Matches(3) {
		t.Fatalf("expected docs 2 and 3 to match")
	}
}

func TestFacade_PrepareIterator_KeywordWalksMatchingDocs(t *testing.T) {
	idx, dict := buildTestIndex(t)
	f := New(idx, nil, 1, idx, 0)

	tree := query.KeywordNode(dict.ID("quick"), "quick")
	spec := builder.PropertySpec{Property: titleProperty()}

	it, err := f.PrepareIterator(tree, spec)
	if err != nil {
		t.Fatalf("PrepareIterator: %v", err)
	}
	defer it.Close()

	var got []int
	for it.Next() {
		got = append(got, int(it.Doc()))
	}
	want := []int{1, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFacade_PrepareIteratorWithBuilder_ExposesSlots(t *testing.T) {
	idx, dict := buildTestIndex(t)
	f := New(idx, nil, 1, idx, 0)

	tree := query.RankKeywordNode(dict.ID("brown"), "brown")
	spec := builder.PropertySpec{Property: titleProperty()}

	it, b, err := f.PrepareIteratorWithBuilder(tree, spec)
	if err != nil {
		t.Fatalf("PrepareIteratorWithBuilder: %v", err)
	}
	defer it.Close()

	if len(b.Slots()) != 1 {
		t.Fatalf("Slots() len = %d, want 1", len(b.Slots()))
	}
	if b.Slots()[0].Property != "title" {
		t.Fatalf("Slots()[0].Property = %q, want title", b.Slots()[0].Property)
	}
}

func buildMultiPropertyIndex(t *testing.T) (*memindex.Index, *memindex.TermDictionary) {
	t.Helper()
	idx := memindex.New(1)
	dict := memindex.NewTermDictionary()
	idx.IndexText("title", 1, "quick brown fox", dict)
	idx.IndexText("title", 2, "lazy dog", dict)
	idx.IndexText("description", 1, "nice relaxing day", dict)
	idx.IndexText("description", 2, "very lazy afternoon", dict)
	return idx, dict
}

func TestFacade_PrepareMultiPropertyIterator_CombinesAcrossProperties(t *testing.T) {
	idx, dict := buildMultiPropertyIndex(t)
	f := New(idx, nil, 1, idx, 0)

	tree := query.RankKeywordNode(dict.ID("lazy"), "lazy")
	specs := []builder.PropertySpec{
		{Property: query.Property{Name: "title", Type: query.String, IsIndexed: true}},
		{Property: query.Property{Name: "description", Type: query.String, IsIndexed: true}},
	}
	propertyConfigs := map[string]scorer.PropertyConfig{
		"title":       {TotalDocs: 2, AvgDocLength: 2, Weight: 1},
		"description": {TotalDocs: 2, AvgDocLength: 3, Weight: 1},
	}

	m, err := f.PrepareMultiPropertyIterator(tree, specs, propertyConfigs, scorer.DefaultParameters(), nil)
	if err != nil {
		t.Fatalf("PrepareMultiPropertyIterator: %v", err)
	}
	if m == nil {
		t.Fatalf("expected a non-nil MultiPropertyScorer")
	}
	defer m.Close()

	if !m.Next() || m.Doc() != 2 {
		t.Fatalf("Doc() = %v, want 2 (only doc2 has \"lazy\" in both properties)", m.Doc())
	}
	if m.Score() <= 0 {
		t.Fatalf("Score() = %v, want > 0 when both properties match", m.Score())
	}
	if m.Next() {
		t.Fatalf("expected exactly one matching document, got another at %v", m.Doc())
	}
}

func TestFacade_PrepareMultiPropertyIterator_EmptyQueryReturnsNilSentinel(t *testing.T) {
	idx, dict := buildMultiPropertyIndex(t)
	f := New(idx, nil, 1, idx, 0)

	tree := query.RankKeywordNode(dict.ID("absent"), "absent")
	specs := []builder.PropertySpec{
		{Property: query.Property{Name: "title", Type: query.String, IsIndexed: true}},
		{Property: query.Property{Name: "description", Type: query.String, IsIndexed: true}},
	}

	m, err := f.PrepareMultiPropertyIterator(tree, specs, nil, scorer.DefaultParameters(), nil)
	if err != nil {
		t.Fatalf("PrepareMultiPropertyIterator: %v", err)
	}
	if m != nil {
		t.Fatalf("expected a nil MultiPropertyScorer for an unmatched term across every property")
	}
}

func TestFacade_ResetCache_AllowsRebuildingFilters(t *testing.T) {
	idx, _ := buildTestIndex(t)
	f := New(idx, nil, 1, idx, 0)

	preds := []predicate.Predicate{
		{Operation: predicate.Equal, Property: "price", Values: []predicate.Value{predicate.IntValue(10)}},
	}
	if _, err := f.PrepareFilter(preds); err != nil {
		t.Fatalf("PrepareFilter: %v", err)
	}
	f.ResetCache()
	if _, err := f.PrepareFilter(preds); err != nil {
		t.Fatalf("PrepareFilter after ResetCache: %v", err)
	}
}
