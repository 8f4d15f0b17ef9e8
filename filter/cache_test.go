package filter

import (
	"testing"

	"github.com/wizenheimer/qcore/bitmap"
	"github.com/wizenheimer/qcore/predicate"
)

func predEq(property string, v int64) predicate.Predicate {
	return predicate.Predicate{Operation: predicate.Equal, Property: property, Values: []predicate.Value{predicate.IntValue(v)}}
}

func TestCache_GetSet_RoundTrips(t *testing.T) {
	c := NewCache(4)
	p := predEq("price", 10)
	bm := bitmap.New()
	bm.Add(1)

	if _, ok := c.Get(p); ok {
		t.Fatalf("expected miss before Set")
	}
	c.Set(p, bm)
	got, ok := c.Get(p)
	if !ok {
		t.Fatalf("expected hit after Set")
	}
	if got.Cardinality() != 1 {
		t.Fatalf("cached bitmap wrong")
	}
}

func TestCache_Reset_ClearsAllEntries(t *testing.T) {
	c := NewCache(4)
	c.Set(predEq("price", 1), bitmap.New())
	c.Reset()
	if c.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", c.Len())
	}
}

func TestCache_Eviction_DropsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	a, b, d := predEq("p", 1), predEq("p", 2), predEq("p", 3)
	c.Set(a, bitmap.New())
	c.Set(b, bitmap.New())
	// Touch a so it becomes most-recently-used; b should be evicted next.
	c.Get(a)
	c.Set(d, bitmap.New())

	if _, ok := c.Get(b); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get(a); !ok {
		t.Fatalf("expected a to survive eviction (recently used)")
	}
	if _, ok := c.Get(d); !ok {
		t.Fatalf("expected d to be present")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_NonPositiveSize_UsesDefault(t *testing.T) {
	c := NewCache(0)
	if c.maxSize != DefaultCacheSize {
		t.Fatalf("maxSize = %d, want %d", c.maxSize, DefaultCacheSize)
	}
}
