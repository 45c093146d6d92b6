package store

import (
	"math"
	"sort"
)

// Okapi BM25 free parameters, conventional defaults. Epsilon floors
// negative IDF values (very common terms) at a fraction of the average
// IDF instead of letting them subtract relevance.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// BM25 is a fitted Okapi BM25 ranking model over a tokenized corpus.
// It is immutable after construction; a new upsert builds a new model.
type BM25 struct {
	chunks    []Chunk
	docFreqs  []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// NewBM25 tokenizes every chunk and fits the ranking model. The corpus may
// be empty, in which case every query returns no results.
func NewBM25(chunks []Chunk) *BM25 {
	b := &BM25{
		chunks:   chunks,
		docFreqs: make([]map[string]int, len(chunks)),
		docLens:  make([]int, len(chunks)),
		idf:      make(map[string]float64),
	}

	// Term frequencies per document and document frequency per term.
	nd := make(map[string]int)
	totalLen := 0
	for i, c := range chunks {
		tokens := Tokenize(c.Content)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		for t := range freqs {
			nd[t]++
		}
		b.docFreqs[i] = freqs
		b.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}
	if len(chunks) > 0 {
		b.avgDocLen = float64(totalLen) / float64(len(chunks))
	}

	// Inverse document frequency with the Okapi negative-IDF floor.
	n := float64(len(chunks))
	idfSum := 0.0
	var negative []string
	for term, df := range nd {
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		b.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(nd) > 0 {
		floor := bm25Epsilon * idfSum / float64(len(nd))
		for _, term := range negative {
			b.idf[term] = floor
		}
	}

	return b
}

// Len returns the number of indexed documents.
func (b *BM25) Len() int {
	return len(b.chunks)
}

// Scores computes the BM25 score of every indexed document for the given
// query tokens, in document order.
func (b *BM25) Scores(queryTokens []string) []float64 {
	scores := make([]float64, len(b.chunks))
	for _, q := range queryTokens {
		idf, ok := b.idf[q]
		if !ok {
			continue
		}
		for i, freqs := range b.docFreqs {
			f := float64(freqs[q])
			if f == 0 {
				continue
			}
			dl := float64(b.docLens[i])
			scores[i] += idf * (f * (bm25K1 + 1)) /
				(f + bm25K1*(1-bm25B+bm25B*dl/b.avgDocLen))
		}
	}
	return scores
}

// Search tokenizes the query, scores every document, and returns the top
// results sorted descending by score with ties kept in original document
// order. A zero-token query returns an empty slice: there is nothing to
// score against. Documents with a score of exactly zero are filtered out
// unless includeZeroScores is set, since a zero score means no query term
// occurred in the document.
func (b *BM25) Search(query string, topK int, includeZeroScores bool) []ScoredChunk {
	if b == nil || len(b.chunks) == 0 {
		return []ScoredChunk{}
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return []ScoredChunk{}
	}

	scores := b.Scores(tokens)
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if topK > 0 && topK < len(order) {
		order = order[:topK]
	}

	results := make([]ScoredChunk, 0, len(order))
	for _, i := range order {
		if !includeZeroScores && scores[i] == 0 {
			continue
		}
		results = append(results, ScoredChunk{
			Content: b.chunks[i].Content,
			Index:   b.chunks[i].Index,
			Score:   scores[i],
		})
	}
	return results
}
