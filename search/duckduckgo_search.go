package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const duckDuckGoHTMLURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearchEngine scrapes the no-javascript DuckDuckGo results page.
type DuckDuckGoSearchEngine struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	maxResults int
	logger     *zap.Logger
}

func NewDuckDuckGoSearchEngine(client *http.Client, logger *zap.Logger, maxResults int) *DuckDuckGoSearchEngine {
	if client == nil {
		client = &http.Client{}
	}
	return &DuckDuckGoSearchEngine{
		client:     client,
		baseURL:    duckDuckGoHTMLURL,
		userAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		maxResults: maxResults,
		logger:     logger,
	}
}

// WithBaseURL points the engine at another results endpoint.
func (d *DuckDuckGoSearchEngine) WithBaseURL(baseURL string) *DuckDuckGoSearchEngine {
	d.baseURL = baseURL
	return d
}

func (d *DuckDuckGoSearchEngine) Search(ctx context.Context, req *SearchRequest) ([]SearchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", req.Query)
	if region := req.Options["region"]; region != "" {
		params.Set("kl", region)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	results := parseDuckDuckGoResults(doc, maxResults(req, d.maxResults))
	if d.logger != nil {
		d.logger.Debug("duckduckgo_search",
			zap.String("query", req.Query),
			zap.Int("results", len(results)))
	}
	return results, nil
}

func parseDuckDuckGoResults(doc *goquery.Document, limit int) []SearchResult {
	var results []SearchResult
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveDuckDuckGoLink(href)
		if target == "" {
			return true
		}

		results = append(results, SearchResult{
			URL:     target,
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Metadata: map[string]string{
				"engine":   ProviderDuckDuckGo,
				"position": strconv.Itoa(len(results) + 1),
			},
		})
		return len(results) < limit
	})
	return results
}

// resolveDuckDuckGoLink unwraps "//duckduckgo.com/l/?uddg=<target>" redirects.
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return ""
		}
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
