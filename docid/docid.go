// Package docid defines the document identifier type shared across the
// query-evaluation core.
package docid

// DocID is a 32-bit document identifier within a collection. 0 is reserved
// as the "unassigned" sentinel; valid document ids lie in [1, maxDoc] where
// maxDoc is reported by the index reader.
type DocID uint32

// Unassigned is the sentinel value meaning "no document".
const Unassigned DocID = 0

// Valid reports whether id is a real, assigned document id.
func (id DocID) Valid() bool {
	return id != Unassigned
}
