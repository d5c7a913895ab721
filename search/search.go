package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderSerpApi    = "serpapi"
	ProviderBrowser    = "browser"

	DefaultMaxResults = 10
)

var ErrEmptyQuery = errors.New("empty search query")

type SearchResult struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Snippet  string            `json:"snippet"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type SearchRequest struct {
	Query      string            `json:"query"`
	MaxPages   int               `json:"max_pages,omitempty"`
	MaxResults int               `json:"max_results,omitempty"`
	Options    map[string]string `json:"options,omitempty"`
}

type SearchEngine interface {
	Search(ctx context.Context, req *SearchRequest) ([]SearchResult, error)
}

// NormalizeResults trims and collapses whitespace in every field and drops
// records that carry no URL. The input slice is left untouched.
func NormalizeResults(results []SearchResult) []SearchResult {
	normalized := make([]SearchResult, 0, len(results))
	for _, r := range results {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}
		normalized = append(normalized, SearchResult{
			URL:      url,
			Title:    collapseSpaces(r.Title),
			Snippet:  collapseSpaces(r.Snippet),
			Metadata: r.Metadata,
		})
	}
	return normalized
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func validateRequest(req *SearchRequest) error {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

func maxResults(req *SearchRequest, fallback int) int {
	if req.MaxResults > 0 {
		return req.MaxResults
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxResults
}

func unknownProvider(name string) error {
	return fmt.Errorf("unknown search provider %q", name)
}
