package bitmap

import (
	"testing"

	"github.com/wizenheimer/qcore/docid"
)

func TestBitmap_AddContains(t *testing.T) {
	bm := New()
	bm.Add(3)
	bm.Add(7)

	if !bm.Contains(3) || !bm.Contains(7) {
		t.Fatalf("expected 3 and 7 to be members")
	}
	if bm.Contains(4) {
		t.Fatalf("4 should not be a member")
	}
	if bm.Cardinality() != 2 {
		t.Fatalf("Cardinality() = %d, want 2", bm.Cardinality())
	}
}

func TestBitmap_And_Intersects(t *testing.T) {
	a := New()
	a.Add(1)
	a.Add(2)
	a.Add(3)

	b := New()
	b.Add(2)
	b.Add(3)
	b.Add(4)

	got := a.And(b)
	if got.Cardinality() != 2 || !got.Contains(2) || !got.Contains(3) {
		t.Fatalf("And result wrong: cardinality=%d", got.Cardinality())
	}
	// Neither input is modified.
	if a.Cardinality() != 3 || b.Cardinality() != 3 {
		t.Fatalf("And must not mutate its inputs")
	}
}

func TestBitmap_Or_Unions(t *testing.T) {
	a := New()
	a.Add(1)
	b := New()
	b.Add(2)

	got := a.Or(b)
	if got.Cardinality() != 2 || !got.Contains(1) || !got.Contains(2) {
		t.Fatalf("Or result wrong")
	}
}

func TestBitmap_And_NilOtherReturnsEmpty(t *testing.T) {
	a := New()
	a.Add(1)
	if got := a.And(nil); got.Cardinality() != 0 {
		t.Fatalf("And(nil) cardinality = %d, want 0", got.Cardinality())
	}
}

func TestBitmap_Or_NilOtherReturnsClone(t *testing.T) {
	a := New()
	a.Add(1)
	got := a.Or(nil)
	if got.Cardinality() != 1 || !got.Contains(1) {
		t.Fatalf("Or(nil) should clone the receiver")
	}
}

func TestBitmap_Clone_IsIndependent(t *testing.T) {
	a := New()
	a.Add(1)
	clone := a.Clone()
	clone.Add(2)
	if a.Contains(2) {
		t.Fatalf("mutating a clone must not affect the original")
	}
}

func TestBitmap_Iterator_AscendingOrder(t *testing.T) {
	bm := New()
	for _, d := range []docid.DocID{5, 1, 3} {
		bm.Add(d)
	}
	it := bm.Iterator()
	var got []docid.DocID
	for it.Next() {
		got = append(got, it.Doc())
	}
	want := []docid.DocID{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBitmap_Iterator_SkipTo(t *testing.T) {
	bm := New()
	bm.Add(2)
	bm.Add(4)
	bm.Add(8)

	it := bm.Iterator()
	if !it.SkipTo(3) {
		t.Fatalf("SkipTo(3) = false")
	}
	if it.Doc() != 4 {
		t.Fatalf("Doc() = %d, want 4", it.Doc())
	}
	if it.SkipTo(9) {
		t.Fatalf("SkipTo(9) should fail, nothing >= 9")
	}
}

func TestUniverse_CoversOneThroughMaxDoc(t *testing.T) {
	bm := Universe(5)
	if bm.Contains(0) {
		t.Fatalf("Universe must exclude doc 0 (the unassigned sentinel)")
	}
	for d := docid.DocID(1); d <= 5; d++ {
		if !bm.Contains(d) {
			t.Fatalf("Universe(5) must contain doc %d", d)
		}
	}
	if bm.Contains(6) {
		t.Fatalf("Universe(5) must not contain doc 6")
	}
	if bm.Cardinality() != 5 {
		t.Fatalf("Cardinality() = %d, want 5", bm.Cardinality())
	}
}

func TestBuilder_AddStreamOfEmptyWords_ZeroWordsNoop(t *testing.T) {
	b := NewBuilder()
	b.AddStreamOfEmptyWords(true, 0)
	if b.Bitmap().Cardinality() != 0 {
		t.Fatalf("expected no-op for zero word count")
	}
}
