package iterator

import (
	"sort"

	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/index"
)

// positionReader is the slice of index.PostingReader the phrase iterators
// need: document alignment plus intra-document positions.
type positionReader interface {
	Doc() docid.DocID
	Next() bool
	SkipTo(target docid.DocID) bool
	DF() uint64
	Positions() []int
}

// phraseBase aligns a set of position-carrying leaves in lock-step exactly
// like AndIterator, then lets the embedding type decide whether the
// aligned document's positions form a valid match via validate. Grounded on
// the teacher's search.go isValidPhrase / NextCover family, adapted from a
// whole-index position scan to one leaf-reader per query term.
type phraseBase struct {
	readers  []index.PostingReader
	doc      docid.DocID
	started  bool
	validate func(positions [][]int) bool
}

func (p *phraseBase) Doc() docid.DocID { return p.doc }

func (p *phraseBase) Empty() bool { return len(p.readers) == 0 }

func (p *phraseBase) Add(DocumentIterator) error { return ErrEmptyComposite }

func (p *phraseBase) DF() uint64 {
	// The conjunction can never match more often than its rarest term.
	var min uint64
	first := true
	for _, r := range p.readers {
		if first || r.DF() < min {
			min = r.DF()
			first = false
		}
	}
	return min
}

func (p *phraseBase) Score(scorer PropertyScorer) float32 {
	if scorer == nil {
		return 0
	}
	var total float32
	for i, r := range p.readers {
		total += scorer.TermScore(p.doc, uint32(i), r.DF(), uint32(len(r.Positions())))
	}
	return total
}

func (p *phraseBase) Close() {
	for _, r := range p.readers {
		if r != nil {
			r.Close()
		}
	}
}

func (p *phraseBase) Next() bool {
	if p.Empty() {
		p.doc = Exhausted
		return false
	}
	if !p.started {
		p.started = true
		return p.SkipTo(1)
	}
	return p.SkipTo(p.doc + 1)
}

// SkipTo aligns every reader to a common document >= target (AndIterator's
// alignment loop) and additionally requires the document's positions to
// satisfy validate; documents whose terms co-occur but fail the position
// check are skipped, matching NextPhrase's "not a valid phrase, recurse"
// step.
func (p *phraseBase) SkipTo(target docid.DocID) bool {
	p.started = true
	for {
		max := target
		for _, r := range p.readers {
			if !r.SkipTo(max) {
				p.doc = Exhausted
				return false
			}
			if d := r.Doc(); d > max {
				max = d
			}
		}
		allAgree := true
		for _, r := range p.readers {
			if r.Doc() != max {
				allAgree = false
				break
			}
		}
		if !allAgree {
			target = max
			continue
		}
		positions := make([][]int, len(p.readers))
		for i, r := range p.readers {
			positions[i] = r.Positions()
		}
		if p.validate(positions) {
			p.doc = max
			return true
		}
		target = max + 1
	}
}

// ExactIterator requires its terms' positions to appear strictly
// consecutive and in query order in the current document — the classic
// phrase match (spec.md §4.7). Callers should prefer seeking readers
// against a property's unigram alias (query.Property.UnigramAlias) when one
// exists, for finer positional resolution.
type ExactIterator struct {
	phraseBase
}

// NewExactIterator builds an exact-phrase iterator over readers, one per
// query term in surface order.
func NewExactIterator(readers []index.PostingReader) *ExactIterator {
	e := &ExactIterator{}
	e.readers = readers
	e.validate = validateExact
	return e
}

func validateExact(positions [][]int) bool {
	if len(positions) == 0 {
		return false
	}
	// Try every occurrence of the first term as a candidate phrase start;
	// each subsequent term must appear at exactly start+i.
	for _, start := range positions[0] {
		ok := true
		for i := 1; i < len(positions); i++ {
			if !containsInt(positions[i], start+i) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// OrderIterator requires its terms' positions to appear in strictly
// increasing order in the current document, but not necessarily adjacent
// (spec.md §4.7's ORDER node).
type OrderIterator struct {
	phraseBase
}

func NewOrderIterator(readers []index.PostingReader) *OrderIterator {
	o := &OrderIterator{}
	o.readers = readers
	o.validate = validateOrder
	return o
}

func validateOrder(positions [][]int) bool {
	if len(positions) == 0 {
		return false
	}
	// Greedy: for every occurrence of the first term, walk forward
	// requiring each next term to have some position strictly greater than
	// the previous chosen one.
	for _, start := range positions[0] {
		prev := start
		ok := true
		for i := 1; i < len(positions); i++ {
			next, found := nextGreater(positions[i], prev)
			if !found {
				ok = false
				break
			}
			prev = next
		}
		if ok {
			return true
		}
	}
	return false
}

// NearbyIterator requires all terms' positions to fit within a window of
// distance+1 (a minimal cover no wider than distance), matching
// NextCover's proximity semantics (spec.md §4.7's NEARBY node).
type NearbyIterator struct {
	phraseBase
	distance int
}

func NewNearbyIterator(readers []index.PostingReader, distance int) *NearbyIterator {
	n := &NearbyIterator{distance: distance}
	n.readers = readers
	n.validate = n.validateNearby
	return n
}

func (n *NearbyIterator) validateNearby(positions [][]int) bool {
	if len(positions) == 0 {
		return false
	}
	// Minimal-window scan: merge all (term, position) pairs sorted by
	// position, then slide a window requiring at least one position from
	// every term inside it, exactly like the cover/NextCover idea of
	// "smallest range containing all tokens" in the teacher's search.go.
	type hit struct {
		pos  int
		term int
	}
	var hits []hit
	for t, ps := range positions {
		for _, p := range ps {
			hits = append(hits, hit{pos: p, term: t})
		}
	}
	if len(hits) == 0 {
		return false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	need := len(positions)
	count := make([]int, need)
	distinct := 0
	left := 0
	for right := 0; right < len(hits); right++ {
		if count[hits[right].term] == 0 {
			distinct++
		}
		count[hits[right].term]++
		for distinct == need {
			window := hits[right].pos - hits[left].pos
			if window <= n.distance {
				return true
			}
			count[hits[left].term]--
			if count[hits[left].term] == 0 {
				distinct--
			}
			left++
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func nextGreater(xs []int, after int) (int, bool) {
	best := 0
	found := false
	for _, x := range xs {
		if x > after && (!found || x < best) {
			best = x
			found = true
		}
	}
	return best, found
}
