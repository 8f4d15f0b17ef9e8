package filter

import (
	"log/slog"

	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/predicate"
)

// RangeQuerier is the slice of the Index Reader contract FilterBuilder
// needs: the maximum assigned doc id, and the compressed range-scan
// primitive. Declared locally (rather than importing the index package) so
// filter stays a leaf package any Reader implementation can satisfy
// structurally.
type RangeQuerier interface {
	MaxDoc() docid.DocID
	MakeRangeQuery(op predicate.Operation, property string, values []predicate.Value, out *bitmap.Bitmap) error
}

// Builder converts ordered predicate lists (implicit conjunction) into a
// single compressed bitmap, caching per-predicate results.
//
// Grounded on original_source/.../QueryBuilder.cpp's prepare_filter.
type Builder struct {
	reader RangeQuerier
	cache  *Cache
}

// NewBuilder constructs a Builder backed by reader, with a predicate cache
// of the given size (<=0 uses DefaultCacheSize).
func NewBuilder(reader RangeQuerier, cacheSize int) *Builder {
	return &Builder{reader: reader, cache: NewCache(cacheSize)}
}

// ResetCache discards every cached predicate bitmap (e.g. after an index
// rebuild); invalidation timing is the caller's responsibility.
func (b *Builder) ResetCache() {
	b.cache.Reset()
}

// Cache returns the FilterCache backing this Builder, so a
// builder.Builder constructing the same query's iterators can share it —
// the numeric-filter branch's synthetic EQUAL predicates reuse whatever a
// FilterBuilder predicate already cached, and vice versa.
func (b *Builder) Cache() *Cache {
	return b.cache
}

// Prepare builds the conjunction of predicates into a single Filter.
//
// Single predicate: served straight from cache, or built + cached.
// Multiple predicates: seeded with the universe bitmap [1, maxDoc], then
// narrowed by intersecting each predicate's bitmap in order. Any error
// encountered while building a later predicate's bitmap is swallowed and
// the accumulated result so far is returned — a known permissive behavior
// (spec.md §4.3 step 3, confirmed intentional in DESIGN.md).
func (b *Builder) Prepare(predicates []predicate.Predicate) (*Filter, error) {
	if len(predicates) == 0 {
		return &Filter{bm: bitmap.New()}, nil
	}

	if len(predicates) == 1 {
		bm, err := b.bitmapFor(predicates[0])
		if err != nil {
			return nil, err
		}
		return &Filter{bm: bm}, nil
	}

	result := bitmap.Universe(b.reader.MaxDoc())
	for _, p := range predicates {
		bm, err := b.bitmapFor(p)
		if err != nil {
			slog.Warn("filter predicate failed, keeping accumulated result",
				slog.String("property", p.Property), slog.String("op", p.Operation.String()), slog.Any("err", err))
			break
		}
		result = result.And(bm)
	}
	return &Filter{bm: result}, nil
}

// bitmapFor resolves a single predicate's bitmap via the cache, or builds
// and caches it on a miss.
func (b *Builder) bitmapFor(p predicate.Predicate) (*bitmap.Bitmap, error) {
	if bm, ok := b.cache.Get(p); ok {
		return bm, nil
	}

	out := bitmap.FromRoaring(nil)
	if err := b.reader.MakeRangeQuery(p.Operation, p.Property, p.Values, out); err != nil {
		return nil, err
	}
	b.cache.Set(p, out)
	return out, nil
}
