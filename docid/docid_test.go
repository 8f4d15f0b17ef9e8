package docid

import "testing"

func TestDocID_Valid(t *testing.T) {
	if Unassigned.Valid() {
		t.Fatalf("Unassigned.Valid() = true, want false")
	}
	if !DocID(1).Valid() {
		t.Fatalf("DocID(1).Valid() = false, want true")
	}
}
