package iterator

import (
	"sort"

	"github.com/wizenheimer/qcore/docid"
	"github.com/wizenheimer/qcore/index"
)

// TrieWildcardIterator unions the posting lists of the KEYWORD terms a trie
// lookup expanded a prefix into, capped to the five most frequent
// expansions by document frequency (spec.md §4.8) — a bounded fan-out
// standing in for the original trie's unbounded child-term walk.
type TrieWildcardIterator struct {
	or *OrIterator
}

// MaxTrieExpansions is the cap on how many expanded terms' posting lists
// TRIE_WILDCARD unions, applied to the highest-DF terms first.
const MaxTrieExpansions = 5

// NewTrieWildcardIterator selects the top MaxTrieExpansions readers by
// descending DF and unions them via an OrIterator. Closes any reader it
// drops past the cap.
func NewTrieWildcardIterator(readers []index.PostingReader) *TrieWildcardIterator {
	sort.Slice(readers, func(i, j int) bool { return readers[i].DF() > readers[j].DF() })
	kept := readers
	if len(kept) > MaxTrieExpansions {
		for _, dropped := range readers[MaxTrieExpansions:] {
			dropped.Close()
		}
		kept = readers[:MaxTrieExpansions]
	}
	or := NewOrIterator()
	for _, r := range kept {
		or.Add(NewSearchTermDocumentIterator(r))
	}
	return &TrieWildcardIterator{or: or}
}

func (t *TrieWildcardIterator) Doc() docid.DocID                { return t.or.Doc() }
func (t *TrieWildcardIterator) Next() bool                      { return t.or.Next() }
func (t *TrieWildcardIterator) SkipTo(target docid.DocID) bool  { return t.or.SkipTo(target) }
func (t *TrieWildcardIterator) DF() uint64                      { return t.or.DF() }
func (t *TrieWildcardIterator) Score(scorer PropertyScorer) float32 { return t.or.Score(scorer) }
func (t *TrieWildcardIterator) Add(DocumentIterator) error      { return ErrEmptyComposite }
func (t *TrieWildcardIterator) Empty() bool                     { return t.or.Empty() }
func (t *TrieWildcardIterator) Close()                          { t.or.Close() }

// GlobPart is one segment of a UNIGRAM_WILDCARD pattern: a literal surface
// form, an ASTERISK (matches any run, including empty), or a QUESTION_MARK
// (matches exactly one rune).
type GlobPart struct {
	literal string
	star    bool
	any     bool
}

// UnigramWildcardIterator evaluates a KEYWORD/ASTERISK/QUESTION_MARK
// sequence against each candidate document's unigram-aliased property
// content, fetched from the DocumentManager (spec.md §4.8). Candidates come
// from the union of the sequence's literal KEYWORD terms — a document
// cannot match the pattern without containing at least one of them.
type UnigramWildcardIterator struct {
	candidates DocumentIterator // union of literal-term postings
	pattern    []GlobPart
	docs       index.DocumentManager
	property   string
	doc        docid.DocID
}

// NewUnigramWildcardIterator builds the candidate union from literalReaders
// (one per literal KEYWORD in the sequence) and compiles pattern (in
// sequence order) into a matcher evaluated against property's content via
// docs.
func NewUnigramWildcardIterator(literalReaders []index.PostingReader, pattern []GlobPart, docs index.DocumentManager, property string) *UnigramWildcardIterator {
	or := NewOrIterator()
	for _, r := range literalReaders {
		or.Add(NewSearchTermDocumentIterator(r))
	}
	return &UnigramWildcardIterator{candidates: or, pattern: pattern, docs: docs, property: property}
}

// Literal appends a literal KEYWORD segment to a pattern being assembled.
func Literal(surface string) GlobPart { return GlobPart{literal: surface} }

// Star appends an ASTERISK segment to a pattern being assembled.
func Star() GlobPart { return GlobPart{star: true} }

// Any appends a QUESTION_MARK segment to a pattern being assembled.
func Any() GlobPart { return GlobPart{any: true} }

func (u *UnigramWildcardIterator) Doc() docid.DocID { return u.doc }

func (u *UnigramWildcardIterator) Next() bool {
	return u.SkipTo(u.doc + 1)
}

func (u *UnigramWildcardIterator) SkipTo(target docid.DocID) bool {
	if !u.candidates.SkipTo(target) {
		u.doc = Exhausted
		return false
	}
	for {
		d := u.candidates.Doc()
		if d == Exhausted {
			u.doc = Exhausted
			return false
		}
		if u.matchesContent(d) {
			u.doc = d
			return true
		}
		if !u.candidates.Next() {
			u.doc = Exhausted
			return false
		}
	}
}

func (u *UnigramWildcardIterator) matchesContent(doc docid.DocID) bool {
	if u.docs == nil {
		return false
	}
	content, err := u.docs.GetDocumentContent(doc, u.property)
	if err != nil {
		return false
	}
	return matchGlob(u.pattern, string(content))
}

func (u *UnigramWildcardIterator) DF() uint64 { return u.candidates.DF() }

func (u *UnigramWildcardIterator) Score(scorer PropertyScorer) float32 {
	return u.candidates.Score(scorer)
}

func (u *UnigramWildcardIterator) Add(DocumentIterator) error { return ErrEmptyComposite }
func (u *UnigramWildcardIterator) Empty() bool                { return u.candidates.Empty() }
func (u *UnigramWildcardIterator) Close()                     { u.candidates.Close() }

// matchGlob reports whether text matches the segment sequence pattern,
// where star matches any (possibly empty) run and any matches exactly one
// rune, by straightforward backtracking over rune positions.
func matchGlob(pattern []GlobPart, text string) bool {
	runes := []rune(text)
	return matchGlobAt(pattern, runes)
}

func matchGlobAt(pattern []GlobPart, text []rune) bool {
	if len(pattern) == 0 {
		return len(text) == 0
	}
	part := pattern[0]
	switch {
	case part.star:
		for i := 0; i <= len(text); i++ {
			if matchGlobAt(pattern[1:], text[i:]) {
				return true
			}
		}
		return false
	case part.any:
		if len(text) == 0 {
			return false
		}
		return matchGlobAt(pattern[1:], text[1:])
	default:
		lit := []rune(part.literal)
		if len(text) < len(lit) {
			return false
		}
		for i, r := range lit {
			if text[i] != r {
				return false
			}
		}
		return matchGlobAt(pattern[1:], text[len(lit):])
	}
}
