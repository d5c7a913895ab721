package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type browserEngine struct {
	Name           string
	URLTemplate    string
	ResultSelector string
}

var duckDuckGoBrowser = browserEngine{
	Name:           "DuckDuckGo",
	URLTemplate:    "https://duckduckgo.com/?q=%s",
	ResultSelector: `section[data-testid="mainline"] a[data-testid="result-title-a"]`,
}

// BrowserSearchEngine drives headless Chrome through the javascript
// DuckDuckGo frontend. It is slower than the HTML endpoint but survives
// layouts the HTML endpoint blocks.
type BrowserSearchEngine struct {
	logger          *zap.Logger
	engine          browserEngine
	timeout         time.Duration
	maxResults      int
	ChromedpOptions []chromedp.ExecAllocatorOption
}

func NewBrowserSearchEngine(logger *zap.Logger, proxyURL string, maxResults int) *BrowserSearchEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", ""),
	)
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}

	return &BrowserSearchEngine{
		logger:          logger,
		engine:          duckDuckGoBrowser,
		timeout:         60 * time.Second,
		maxResults:      maxResults,
		ChromedpOptions: opts,
	}
}

func (b *BrowserSearchEngine) Search(ctx context.Context, req *SearchRequest) ([]SearchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.ChromedpOptions...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, b.timeout)
	defer timeoutCancel()

	searchURL := fmt.Sprintf(b.engine.URLTemplate, url.QueryEscape(req.Query))
	b.logger.Info("Navigating to search",
		zap.String("url", searchURL),
		zap.String("engine", b.engine.Name))

	script := fmt.Sprintf(`
		Array.from(document.querySelectorAll('%s')).map(link => ({
			href: link.href,
			text: link.textContent.trim(),
			snippet: (link.closest('article') || link).innerText.trim()
		})).filter(link =>
			link.href &&
			link.href.startsWith('http') &&
			link.text.length > 0
		)
	`, b.engine.ResultSelector)

	var rawLinks []map[string]string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(script, &rawLinks),
	)
	if err != nil {
		b.logger.Error("Failed to extract links",
			zap.Error(err),
			zap.String("selector", b.engine.ResultSelector))
		return nil, fmt.Errorf("link extraction failed: %w", err)
	}

	results := linksToResults(rawLinks, maxResults(req, b.maxResults))
	b.logger.Info("Successfully extracted links",
		zap.Int("total_links", len(rawLinks)),
		zap.Int("results", len(results)))
	return results, nil
}

func linksToResults(rawLinks []map[string]string, limit int) []SearchResult {
	var results []SearchResult
	for _, link := range rawLinks {
		if len(results) >= limit {
			break
		}
		title := link["text"]
		snippet := strings.TrimSpace(strings.TrimPrefix(link["snippet"], title))
		results = append(results, SearchResult{
			URL:     link["href"],
			Title:   title,
			Snippet: snippet,
			Metadata: map[string]string{
				"engine":   ProviderBrowser,
				"position": strconv.Itoa(len(results) + 1),
			},
		})
	}
	return results
}
