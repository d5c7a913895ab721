package relevance

import "webanswer/search"

type ScoredResult struct {
	Result search.SearchResult `json:"result"`
	Score  float64             `json:"score"`
}

// Ranker reorders search results by relevance to a query. Implementations
// must be total: every input, including an empty one, yields a result.
type Ranker interface {
	Rank(results []search.SearchResult, query string) []ScoredResult
}
