package relevance

import (
	"math"
	"sort"

	"webanswer/search"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// BM25Ranker scores each result's "title snippet" text against the query
// with Okapi BM25, using the result set itself as the corpus.
type BM25Ranker struct {
	k1       float64
	b        float64
	analyzer *Analyzer
}

type Option func(*BM25Ranker)

// WithParameters overrides term frequency saturation (k1) and document
// length normalization (b).
func WithParameters(k1, b float64) Option {
	return func(r *BM25Ranker) {
		r.k1 = k1
		r.b = b
	}
}

// WithStemming reduces terms to their snowball stem, e.g. "english".
func WithStemming(language string) Option {
	return func(r *BM25Ranker) {
		r.analyzer.stemLanguage = language
	}
}

// WithStopWords drops the given words from documents and queries. A nil
// list selects DefaultStopWords.
func WithStopWords(words []string) Option {
	return func(r *BM25Ranker) {
		if words == nil {
			words = DefaultStopWords
		}
		r.analyzer.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			r.analyzer.stopWords[w] = struct{}{}
		}
	}
}

func NewBM25Ranker(opts ...Option) *BM25Ranker {
	r := &BM25Ranker{
		k1:       DefaultK1,
		b:        DefaultB,
		analyzer: &Analyzer{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns the results paired with their scores, highest first. Equal
// scores keep their input order.
func (r *BM25Ranker) Rank(results []search.SearchResult, query string) []ScoredResult {
	scored := make([]ScoredResult, len(results))
	if len(results) == 0 {
		return scored
	}

	docs := make([]map[string]int, len(results))
	docLengths := make([]int, len(results))
	docFreq := make(map[string]int)
	totalLength := 0

	for i, res := range results {
		tokens := r.analyzer.Tokens(res.Title + " " + res.Snippet)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			docFreq[t]++
		}
		docs[i] = tf
		docLengths[i] = len(tokens)
		totalLength += len(tokens)
	}

	queryTokens := r.analyzer.Tokens(query)
	avgLength := float64(totalLength) / float64(len(results))
	n := float64(len(results))

	for i, res := range results {
		scored[i] = ScoredResult{Result: res}
		if avgLength == 0 {
			continue
		}
		norm := r.k1 * (1 - r.b + r.b*float64(docLengths[i])/avgLength)
		for _, q := range queryTokens {
			tf := float64(docs[i][q])
			if tf == 0 {
				continue
			}
			df := float64(docFreq[q])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			scored[i].Score += idf * tf * (r.k1 + 1) / (tf + norm)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
