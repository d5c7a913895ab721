package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"webanswer/logging"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// PageRetriever fetches a single URL and returns its readable text.
type PageRetriever interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

type fetchedPage struct {
	url         string
	contentType string
	statusCode  int
	body        []byte
}

type Retriever struct {
	config    *RetrieverConfig
	transport http.RoundTripper
	validator *URLValidator
	extractor *Extractor
	logger    *zap.Logger
}

// NewRetriever creates a retriever. transport may be nil to use the colly
// default.
func NewRetriever(config *RetrieverConfig, transport http.RoundTripper, logger *zap.Logger) *Retriever {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		config:    config,
		transport: transport,
		validator: NewURLValidator(config),
		extractor: NewExtractor(config.Mode, config.MaxChars, logger),
		logger:    logger,
	}
}

func (r *Retriever) FetchPage(ctx context.Context, rawURL string) (string, error) {
	logger := logging.FromContext(ctx, r.logger)

	u, err := r.validator.Validate(rawURL)
	if err != nil {
		return "", err
	}

	start := time.Now()
	page, err := r.download(ctx, u.String())
	if err != nil {
		logger.Warn("page download failed", zap.String("url", u.String()), zap.Error(err))
		return "", err
	}

	text, err := r.extractor.Extract(page.body, page.url, page.contentType)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", page.url, err)
	}

	logger.Info("page_retrieved",
		zap.String("url", page.url),
		zap.Int("status_code", page.statusCode),
		zap.String("content_type", page.contentType),
		zap.Int("body_size", len(page.body)),
		zap.Int("text_length", len(text)),
		zap.Duration("took", time.Since(start)))

	return text, nil
}

// download visits url with a collector that lives for this call only, so
// no cookies or visit history carry over between invocations.
func (r *Retriever) download(ctx context.Context, url string) (*fetchedPage, error) {
	c := colly.NewCollector(
		colly.UserAgent(r.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.MaxBodySize(r.config.MaxBodyBytes),
		colly.AllowURLRevisit(),
	)
	if r.transport != nil {
		c.WithTransport(r.transport)
	}
	c.SetRequestTimeout(r.config.RequestTimeout)
	c.SetRedirectHandler(r.checkRedirect)

	var (
		page     *fetchedPage
		fetchErr error
	)

	c.OnRequest(func(req *colly.Request) {
		req.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")
	})

	c.OnResponse(func(resp *colly.Response) {
		page = &fetchedPage{
			url:         resp.Request.URL.String(),
			contentType: resp.Headers.Get("Content-Type"),
			statusCode:  resp.StatusCode,
			body:        resp.Body,
		}
	})

	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode != 0 {
			fetchErr = fmt.Errorf("http %d: %w", resp.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, fetchErr)
	}
	if page == nil {
		return nil, fmt.Errorf("failed to fetch %s: no response", url)
	}
	return page, nil
}

// checkRedirect applies the URL rules to every hop, not just the first
// request, and bounds the chain length.
func (r *Retriever) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= r.config.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", r.config.MaxRedirects)
	}
	if _, err := r.validator.Validate(req.URL.String()); err != nil {
		return fmt.Errorf("redirect rejected: %w", err)
	}
	return nil
}
