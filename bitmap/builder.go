package bitmap

import "github.com/wizenheimer/qcore/docid"

// wordBits is the width, in bits, of one compressed "word" in the spec's
// EWAH-flavored addStreamOfEmptyWords primitive (spec.md §4.1). Roaring has
// no literal word concept, so Builder reproduces the primitive on top of it
// by tracking a running bit cursor and turning "append N all-one/all-zero
// words" into a single range Add.
const wordBits = 32

// Builder constructs a Bitmap by appending runs of identical words, exactly
// as the spec's addStreamOfEmptyWords does for seeding the universe bitmap
// covering [1, maxDoc] before a multi-predicate filter intersection begins.
type Builder struct {
	bm     *Bitmap
	cursor uint64 // next bit position to be written, in bits
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{bm: New()}
}

// AddStreamOfEmptyWords appends wordCount words of the given value (true =
// all-one, false = all-zero) to the bitmap being built. All-one words set
// every bit in their range; all-zero words simply advance the cursor.
func (b *Builder) AddStreamOfEmptyWords(value bool, wordCount uint64) {
	if wordCount == 0 {
		return
	}
	start := b.cursor
	end := start + wordCount*wordBits // exclusive
	if value {
		b.bm.rb.AddRange(start, end)
	}
	b.cursor = end
}

// Universe seeds a Builder with a bitmap covering [1, maxDoc] (inclusive),
// i.e. every valid document id, the identity element for filter
// intersection (spec.md §4.3 step 2).
func Universe(maxDoc docid.DocID) *Bitmap {
	b := NewBuilder()
	bitsNum := uint64(maxDoc) + 1 // bit 0 (the unassigned sentinel) is excluded below
	wordsNum := bitsNum / wordBits
	if bitsNum%wordBits != 0 {
		wordsNum++
	}
	b.AddStreamOfEmptyWords(true, wordsNum)
	bm := b.Bitmap()
	bm.rb.Remove(0)
	bm.rb.RemoveRange(uint64(maxDoc)+1, wordsNum*wordBits)
	return bm
}

// Bitmap returns the built bitmap.
func (b *Builder) Bitmap() *Bitmap {
	return b.bm
}
