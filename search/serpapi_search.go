package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const serpApiURL = "https://serpapi.com/search"

type SerpApiSearchEngine struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

type serpApiResponse struct {
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	Error string `json:"error"`
}

func NewSerpApiSearchEngine(client *http.Client, apiKey string) *SerpApiSearchEngine {
	if client == nil {
		client = &http.Client{}
	}
	return &SerpApiSearchEngine{
		client:  client,
		apiKey:  apiKey,
		baseURL: serpApiURL,
	}
}

func (s *SerpApiSearchEngine) WithBaseURL(baseURL string) *SerpApiSearchEngine {
	s.baseURL = baseURL
	return s
}

func (s *SerpApiSearchEngine) Search(ctx context.Context, req *SearchRequest) ([]SearchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = 1
	}
	limit := maxResults(req, maxPages*10)

	var allResults []SearchResult
	for i := range maxPages {
		page, err := s.fetchPage(ctx, req.Query, i)
		if err != nil {
			return nil, err
		}

		for _, item := range page.OrganicResults {
			allResults = append(allResults, SearchResult{
				URL:     item.Link,
				Title:   item.Title,
				Snippet: item.Snippet,
				Metadata: map[string]string{
					"engine":   ProviderSerpApi,
					"page":     strconv.Itoa(i + 1),
					"position": strconv.Itoa(item.Position),
				},
			})
			if len(allResults) >= limit {
				return allResults, nil
			}
		}

		if len(page.OrganicResults) == 0 {
			break
		}
	}

	return allResults, nil
}

func (s *SerpApiSearchEngine) fetchPage(ctx context.Context, query string, page int) (*serpApiResponse, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("start", strconv.Itoa(page*10))
	params.Set("num", "10")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var searchResp serpApiResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if searchResp.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", searchResp.Error)
	}
	return &searchResp, nil
}
