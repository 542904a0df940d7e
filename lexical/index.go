package lexical

import (
	"math"
	"sync"
)

// Options are the BM25 ranking parameters.
type Options struct {
	// K1 controls term-frequency saturation.
	K1 float64

	// B controls document-length normalization.
	B float64
}

// DefaultOptions are the options used by NewIndex unless overridden.
var DefaultOptions = Options{
	K1: 1.2,
	B:  0.75,
}

type posting struct {
	id    string
	count int
}

// Index is an incremental in-memory BM25 index. Documents are keyed by their
// external record id, so graph-side relocations never touch posting lists.
type Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	inverted    map[string][]posting
	docTerms    map[string][]string
	docLengths  map[string]int
	totalLength int64
}

// NewIndex creates an empty index.
func NewIndex(optFns ...func(o *Options)) *Index {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Index{
		k1:          opts.K1,
		b:           opts.B,
		inverted:    make(map[string][]posting),
		docTerms:    make(map[string][]string),
		docLengths:  make(map[string]int),
	}
}

// Add indexes a document's text, replacing any previous text under the same
// id.
func (x *Index) Add(id, text string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.docLengths[id]; ok {
		x.deleteLocked(id)
	}

	tokens := Tokenize(text)

	x.docLengths[id] = len(tokens)
	x.totalLength += int64(len(tokens))

	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}

	terms := make([]string, 0, len(tf))
	for t, count := range tf {
		x.inverted[t] = append(x.inverted[t], posting{id: id, count: count})
		terms = append(terms, t)
	}
	x.docTerms[id] = terms
}

// Delete removes a document. Unknown ids are a no-op.
func (x *Index) Delete(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.deleteLocked(id)
}

// deleteLocked walks only the document's own terms, not the whole inverted
// index.
func (x *Index) deleteLocked(id string) {
	length, ok := x.docLengths[id]
	if !ok {
		return
	}

	for _, t := range x.docTerms[id] {
		postings := x.inverted[t]
		for i, p := range postings {
			if p.id == id {
				x.inverted[t] = append(postings[:i], postings[i+1:]...)
				break
			}
		}
		if len(x.inverted[t]) == 0 {
			delete(x.inverted, t)
		}
	}

	delete(x.docTerms, id)
	delete(x.docLengths, id)
	x.totalLength -= int64(length)
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return len(x.docLengths)
}

// Search scores all documents matching any query token. Scores are raw BM25
// values; callers normalize for presentation.
func (x *Index) Search(query string) map[string]float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	scores := make(map[string]float64)

	docCount := len(x.docLengths)
	if docCount == 0 {
		return scores
	}

	avgDL := float64(x.totalLength) / float64(docCount)

	for _, t := range Tokenize(query) {
		postings, ok := x.inverted[t]
		if !ok {
			continue
		}

		idf := x.idf(docCount, len(postings))

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(x.docLengths[p.id])

			num := tf * (x.k1 + 1)
			denom := tf + x.k1*(1-x.b+x.b*(docLen/avgDL))

			scores[p.id] += idf * (num / denom)
		}
	}

	return scores
}

// ForEachDoc calls fn for every indexed document with its distinct terms,
// stopping early if fn returns false. Iteration runs over a snapshot taken
// under the read lock and released before the first call, so fn may take
// other locks, or mutate this index, without ordering against it. The terms
// slices are owned by the index and must not be modified; Add publishes a
// fresh slice per document, so a snapshot never observes one mid-change.
func (x *Index) ForEachDoc(fn func(id string, terms []string) bool) {
	type doc struct {
		id    string
		terms []string
	}

	x.mu.RLock()
	docs := make([]doc, 0, len(x.docTerms))
	for id, terms := range x.docTerms {
		docs = append(docs, doc{id: id, terms: terms})
	}
	x.mu.RUnlock()

	for _, d := range docs {
		if !fn(d.id, d.terms) {
			return
		}
	}
}

// idf follows the standard BM25+ shape: log(1 + (N - n + 0.5) / (n + 0.5)).
func (x *Index) idf(docCount, df int) float64 {
	n := float64(docCount)
	d := float64(df)

	return math.Log(1 + (n-d+0.5)/(d+0.5))
}
