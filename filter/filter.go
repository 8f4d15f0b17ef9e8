package filter

import (
	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/docid"
)

// Filter wraps the compressed bitmap produced by FilterBuilder, consumable
// by downstream iterators as a post-filter.
type Filter struct {
	bm *bitmap.Bitmap
}

// Bitmap returns the underlying compressed doc-id set.
func (f *Filter) Bitmap() *bitmap.Bitmap {
	return f.bm
}

// Matches reports whether doc satisfies the filter.
func (f *Filter) Matches(doc docid.DocID) bool {
	return f.bm.Contains(doc)
}
