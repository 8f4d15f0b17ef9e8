package iterator

import "github.com/wizenheimer/qcore/docid"

// AndIterator advances on the max positive child's doc and re-aligns every
// other positive child to it via SkipTo until all agree, then rejects any
// doc excluded by a NOT child attached via Add (spec.md §4.6). A NOT child
// (added via Add with a *NotIterator) never takes part in the forward
// alignment itself — it only vetoes candidate docs the positive children
// already agree on, matching the negated leaf's role in
// original_source/.../QueryBuilder.cpp's NOT case, which requires a
// pre-existing parent iterator and attaches the negated leaf to it.
type AndIterator struct {
	children []DocumentIterator // positive children, aligned in lock-step
	negated  []*NotIterator
	doc      docid.DocID
	started  bool
}

func NewAndIterator() *AndIterator { return &AndIterator{} }

func (a *AndIterator) Add(child DocumentIterator) error {
	if n, ok := child.(*NotIterator); ok {
		a.negated = append(a.negated, n)
		return nil
	}
	a.children = append(a.children, child)
	return nil
}

func (a *AndIterator) Empty() bool { return len(a.children) == 0 && len(a.negated) == 0 }

func (a *AndIterator) Doc() docid.DocID { return a.doc }

func (a *AndIterator) Next() bool {
	if a.Empty() {
		a.doc = Exhausted
		return false
	}
	if !a.started {
		a.started = true
		return a.SkipTo(1)
	}
	return a.SkipTo(a.doc + 1)
}

func (a *AndIterator) SkipTo(target docid.DocID) bool {
	a.started = true
	for {
		max, ok := a.alignPositives(target)
		if !ok {
			a.doc = Exhausted
			return false
		}
		if a.excludedByNegation(max) {
			target = max + 1
			continue
		}
		a.doc = max
		return true
	}
}

// alignPositives re-aligns the positive children to target, returning the
// doc they all agree on once stable, or false if any is exhausted. When
// there are no positive children (a pure negated AND, e.g. NOT alone
// attached to nothing), it simply walks target forward. The builder
// rejects only a bare top-level NOT node; an AND whose only children are
// NOT nodes is built and reaches this path.
func (a *AndIterator) alignPositives(target docid.DocID) (docid.DocID, bool) {
	if len(a.children) == 0 {
		return target, true
	}
	for {
		max, ok := alignMax(a.children, target)
		if !ok {
			return Exhausted, false
		}
		allAgree := true
		for _, c := range a.children {
			if c.Doc() != max {
				allAgree = false
				break
			}
		}
		if allAgree {
			return max, true
		}
		target = max
	}
}

func (a *AndIterator) excludedByNegation(doc docid.DocID) bool {
	for _, n := range a.negated {
		if n.Excludes(doc) {
			return true
		}
	}
	return false
}

func (a *AndIterator) DF() uint64 {
	// Intersection-dependent: the minimum child df is a tighter upper bound
	// on this composite's matching set than any sum would be.
	var min uint64
	first := true
	for _, c := range a.children {
		if first || c.DF() < min {
			min = c.DF()
			first = false
		}
	}
	return min
}

func (a *AndIterator) Score(scorer PropertyScorer) float32 {
	var total float32
	for _, c := range a.children {
		total += c.Score(scorer)
	}
	return total
}

func (a *AndIterator) Close() {
	CloseAll(a.children...)
	for _, n := range a.negated {
		n.Close()
	}
}

// OrIterator yields the min child doc; score contributions are summed
// across every child currently positioned at that doc (spec.md §4.6).
type OrIterator struct {
	children []DocumentIterator
	doc      docid.DocID
	started  bool
}

func NewOrIterator() *OrIterator { return &OrIterator{} }

func (o *OrIterator) Add(child DocumentIterator) error {
	o.children = append(o.children, child)
	return nil
}

func (o *OrIterator) Empty() bool { return len(o.children) == 0 }

func (o *OrIterator) Doc() docid.DocID { return o.doc }

func (o *OrIterator) Next() bool {
	if o.Empty() {
		o.doc = Exhausted
		return false
	}
	if !o.started {
		o.started = true
		return o.SkipTo(1)
	}
	return o.SkipTo(o.doc + 1)
}

func (o *OrIterator) SkipTo(target docid.DocID) bool {
	o.started = true
	for _, c := range o.children {
		if c.Doc() != Exhausted && c.Doc() >= target {
			continue
		}
		c.SkipTo(target)
	}
	d, ok := minDoc(o.children)
	if !ok {
		o.doc = Exhausted
		return false
	}
	o.doc = d
	return true
}

func (o *OrIterator) DF() uint64 {
	var sum uint64
	for _, c := range o.children {
		sum += c.DF()
	}
	return sum
}

func (o *OrIterator) Score(scorer PropertyScorer) float32 {
	var total float32
	for _, c := range o.children {
		if c.Doc() == o.doc {
			total += c.Score(scorer)
		}
	}
	return total
}

func (o *OrIterator) Close() {
	CloseAll(o.children...)
}

// NotIterator negates a single child against the background domain of its
// sibling composite: it reports a document as matching whenever the
// negated child is NOT positioned there. It is illegal as a standalone
// top-level iterator (spec.md §4.6) — that rejection happens in the
// builder, not here, since NotIterator has no notion of "top-level".
type NotIterator struct {
	child   DocumentIterator
	doc     docid.DocID
	started bool
}

func NewNotIterator(child DocumentIterator) *NotIterator {
	return &NotIterator{child: child}
}

func (n *NotIterator) Add(DocumentIterator) error { return ErrEmptyComposite }
func (n *NotIterator) Empty() bool                { return n.child == nil }
func (n *NotIterator) Doc() docid.DocID           { return n.doc }

// Excludes reports whether doc is excluded by the negated child (i.e.
// doc is present in the child's posting list).
func (n *NotIterator) Excludes(doc docid.DocID) bool {
	if n.child == nil {
		return false
	}
	if !n.started {
		n.started = true
		n.child.Next()
	}
	if n.child.Doc() < doc {
		n.child.SkipTo(doc)
	}
	return n.child.Doc() == doc
}

func (n *NotIterator) Next() bool { return false }

func (n *NotIterator) SkipTo(target docid.DocID) bool {
	n.doc = target
	return true
}

func (n *NotIterator) DF() uint64 {
	if n.child == nil {
		return 0
	}
	return n.child.DF()
}

func (n *NotIterator) Score(PropertyScorer) float32 { return 0 }

func (n *NotIterator) Close() {
	if n.child != nil {
		n.child.Close()
	}
}

// PersonalIterator models AND_PERSONAL / OR_PERSONAL: AND semantics over
// its children with a tolerance policy — a missing child does not fail
// construction (a personalization signal may legitimately be absent). asAnd
// selects AND alignment; when false (OR_PERSONAL) it still has AND
// semantics over its own children, matching original_source's
// PersonalSearchDocumentIterator used beneath an OR at the query level
// (spec.md §4.6).
type PersonalIterator struct {
	and *AndIterator
}

func NewPersonalIterator(asAnd bool) *PersonalIterator {
	_ = asAnd // both variants share AND semantics at this node; asAnd only
	// documents which query-tree position (AND_PERSONAL vs OR_PERSONAL) the
	// caller is building, kept for symmetry with original_source's ctor.
	return &PersonalIterator{and: NewAndIterator()}
}

func (p *PersonalIterator) Add(child DocumentIterator) error {
	return p.and.Add(child)
}

func (p *PersonalIterator) Empty() bool          { return p.and.Empty() }
func (p *PersonalIterator) Doc() docid.DocID     { return p.and.Doc() }
func (p *PersonalIterator) Next() bool           { return p.and.Next() }
func (p *PersonalIterator) SkipTo(t docid.DocID) bool { return p.and.SkipTo(t) }
func (p *PersonalIterator) DF() uint64           { return p.and.DF() }
func (p *PersonalIterator) Score(scorer PropertyScorer) float32 { return p.and.Score(scorer) }
func (p *PersonalIterator) Close()               { p.and.Close() }
