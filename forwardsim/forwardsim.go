// Package forwardsim implements the Forward-Index Similarity Module: a
// rerank pass that compares tokenized product titles by brand/model feature
// overlap (spec.md §6's ForwardSimilarity collaborator).
//
// Grounded on original_source/.../ProductForwardManager.cpp: the brand/model
// comparison algorithm (compare_), ForwardSearch, and the append-only
// forward.dict/forward.size persistence pair.
package forwardsim

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/wizenheimer/qcore/docid"
)

// ErrNoCandidates is returned by ForwardSearch when either the query text or
// the candidate list is empty — nothing to rerank.
var ErrNoCandidates = errors.New("forwardsim: no candidates to rerank")

const (
	dictFileName = "forward.dict"
	sizeFileName = "forward.size"
)

// Candidate is a scored document awaiting rerank, mirroring the
// std::pair<double, docid_t> pairs ProductForwardManager::forwardSearch
// operates on.
type Candidate struct {
	Score float64
	Doc   docid.DocID
}

// FeatureTokenizer extracts the brand/model feature terms ForwardSearch
// compares, standing in for ProductTokenizer::GetFeatureTerms. isQuery
// mirrors the original's trailing int flag (1 for query text, 0 for a
// stored title), letting an implementation tokenize queries and titles
// differently. terms must be returned sorted ascending by term id — compare
// relies on a sorted merge to find shared features.
type FeatureTokenizer interface {
	GetFeatureTerms(text string, isQuery bool) (brand, model uint32, terms []uint32)
}

// Manager holds the per-document title cache (forward_index_ in the
// original) backing ForwardSearch's rerank, plus its append-only
// persistence. The zero value is not usable; construct with NewManager.
type Manager struct {
	dir       string
	tokenizer FeatureTokenizer

	mu        sync.RWMutex
	titles    []string // titles[0] is the unused placeholder the original reserves
	lastDocid uint32
}

// NewManager constructs a Manager persisting under dir and tokenizing with
// tokenizer.
func NewManager(dir string, tokenizer FeatureTokenizer) *Manager {
	return &Manager{dir: dir, tokenizer: tokenizer, titles: []string{""}}
}

// Open loads any previously persisted state, reporting whether a prior
// state was found. A missing or partial persistence pair is not an error —
// it means the manager starts empty, exactly as ProductForwardManager::open
// treats a failed load as "start fresh".
func (m *Manager) Open() (loaded bool, err error) {
	return m.load()
}

func (m *Manager) dictPath() string { return filepath.Join(m.dir, dictFileName) }
func (m *Manager) sizePath() string { return filepath.Join(m.dir, sizeFileName) }

func (m *Manager) load() (bool, error) {
	sizeBytes, err := os.ReadFile(m.sizePath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("forwardsim: reading %s: %w", sizeFileName, err)
	}

	var last uint32
	if _, err := fmt.Sscanf(string(sizeBytes), "%d", &last); err != nil {
		return false, fmt.Errorf("forwardsim: parsing %s: %w", sizeFileName, err)
	}

	f, err := os.Open(m.dictPath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("forwardsim: opening %s: %w", dictFileName, err)
	}
	defer f.Close()

	titles := make([]string, 1, last+2)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		titles = append(titles, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("forwardsim: reading %s: %w", dictFileName, err)
	}

	if uint32(len(titles)) != last+1 {
		slog.Warn("forward index size mismatch, starting empty",
			slog.Int("wantLines", int(last+1)), slog.Int("gotLines", len(titles)))
		return false, nil
	}

	m.mu.Lock()
	m.titles = titles
	m.lastDocid = last
	m.mu.Unlock()
	return true, nil
}

// Save appends every title added since the last save to forward.dict and
// overwrites forward.size with lastDoc, exactly as
// ProductForwardManager::save's append-only scheme.
//
// A regressing lastDoc (less than the manager's current high-water mark) is
// treated as a no-op, logged at slog.Warn rather than applied — the
// original's behavior here is undefined (it would both under-write
// forward.size and skip appending), and silently risking a corrupt forward
// index for free is worse than refusing the regression (DESIGN.md open
// question).
func (m *Manager) Save(lastDoc uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lastDoc < m.lastDocid {
		slog.Warn("forward index save ignored: regressing lastDocid",
			slog.Int("current", int(m.lastDocid)), slog.Int("requested", int(lastDoc)))
		return nil
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("forwardsim: creating %s: %w", m.dir, err)
	}

	f, err := os.OpenFile(m.dictPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("forwardsim: opening %s: %w", dictFileName, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := m.lastDocid + 1; i < uint32(len(m.titles)); i++ {
		if _, err := fmt.Fprintln(w, m.titles[i]); err != nil {
			return fmt.Errorf("forwardsim: writing %s: %w", dictFileName, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("forwardsim: flushing %s: %w", dictFileName, err)
	}

	if err := os.WriteFile(m.sizePath(), []byte(fmt.Sprintf("%d", lastDoc)), 0o644); err != nil {
		return fmt.Errorf("forwardsim: writing %s: %w", sizeFileName, err)
	}

	m.lastDocid = lastDoc
	slog.Info("forward index saved", slog.Int("lastDocid", int(lastDoc)))
	return nil
}

// Clear discards in-memory titles and removes the persisted files.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.titles = []string{""}
	m.lastDocid = 0
	m.mu.Unlock()

	for _, p := range []string{m.dictPath(), m.sizePath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("forwardsim: removing %s: %w", p, err)
		}
	}
	return nil
}

// Insert replaces the manager's entire title index, as
// ProductForwardManager::insert's vector swap.
func (m *Manager) Insert(titles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := len(m.titles)
	m.titles = titles
	slog.Info("forward index replaced", slog.Int("oldSize", old), slog.Int("newSize", len(titles)))
}

// Resize grows (or shrinks) the title index to size entries, as
// ProductForwardManager::resize.
func (m *Manager) Resize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size <= len(m.titles) {
		m.titles = m.titles[:size]
		return
	}
	grown := make([]string, size)
	copy(grown, m.titles)
	m.titles = grown
}

// Title returns doc's stored title, or "" if doc has never been set or lies
// past the last saved document, as ProductForwardManager::getIndex.
func (m *Manager) Title(doc docid.DocID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := uint32(doc)
	if i <= m.lastDocid && int(i) < len(m.titles) {
		return m.titles[i]
	}
	return ""
}

// ForwardSearch reranks candidates by brand/model feature overlap against
// query, via compare. Returns a new slice sorted by descending rerank
// score; candidates and query are left untouched.
func (m *Manager) ForwardSearch(query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 || query == "" {
		return nil, ErrNoCandidates
	}

	qBrand, qModel, qTerms := m.tokenizer.GetFeatureTerms(query, true)
	qScore := featureWeightSum(len(qTerms))

	reranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		score := m.compare(qBrand, qModel, qTerms, qScore, c.Doc)
		reranked[i] = Candidate{Score: score, Doc: c.Doc}
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	return reranked, nil
}

// compare scores a single candidate document against the query's brand,
// model and feature terms, as ProductForwardManager::compare_.
//
// An exact brand+model match saturates at 2.0. A brand-only match adds 0.5,
// further boosted by a cosine-like overlap of position-weighted shared
// features.
func (m *Manager) compare(qBrand, qModel uint32, qTerms []uint32, qScore float64, doc docid.DocID) float64 {
	title := m.Title(doc)
	tBrand, tModel, tTerms := m.tokenizer.GetFeatureTerms(title, false)

	var score float64
	if qBrand == tBrand && qBrand > 0 {
		if qModel == tModel && qModel > 0 {
			return 2
		}
		score += 0.5
	}

	if len(qTerms) == 0 || len(tTerms) == 0 {
		return score
	}

	tScore := featureWeightSum(len(tTerms))

	var same float64
	p, q := 0, 0
	for p < len(qTerms) && q < len(tTerms) {
		switch {
		case qTerms[p] < tTerms[q]:
			p++
		case qTerms[p] > tTerms[q]:
			q++
		default:
			same += float64(len(qTerms)-p) * float64(len(tTerms)-q)
			p++
			q++
		}
	}

	if tScore > 1e-7 && qScore > 1e-7 {
		score += same / math.Sqrt(tScore*qScore)
	}
	return score
}

// featureWeightSum is sum((i+1)^2) over a feature-term slice of length n,
// the position-weighting ProductForwardManager::compare_ and forwardSearch
// both compute inline.
func featureWeightSum(n int) float64 {
	var sum float64
	for i := 0; i < n; i++ {
		w := float64(i + 1)
		sum += w * w
	}
	return sum
}
