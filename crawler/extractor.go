package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var ErrNoContent = errors.New("no readable content")

var extraNewlines = regexp.MustCompile(`\n{3,}`)

type Extractor struct {
	mode     string
	maxChars int
	logger   *zap.Logger
}

func NewExtractor(mode string, maxChars int, logger *zap.Logger) *Extractor {
	if mode == "" {
		mode = ModeMarkdown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		mode:     mode,
		maxChars: maxChars,
		logger:   logger,
	}
}

// Extract turns a fetched body into readable text. HTML goes through the
// extraction chain for the configured mode; other text types are returned
// as they are.
func (e *Extractor) Extract(body []byte, pageURL, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	contentType = normalizeContentType(contentType)

	var text string
	switch {
	case contentType == "text/html" || contentType == "application/xhtml+xml":
		parsedURL, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("failed to parse URL: %w", err)
		}
		if e.mode == ModeText {
			text, err = e.extractText(body, parsedURL)
		} else {
			text, err = e.extractMarkdown(body, parsedURL)
		}
		if err != nil {
			return "", err
		}
	case strings.HasPrefix(contentType, "text/") || strings.HasSuffix(contentType, "json") || strings.HasSuffix(contentType, "xml"):
		text = string(body)
	default:
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	text = strings.TrimSpace(extraNewlines.ReplaceAllString(text, "\n\n"))
	if text == "" {
		return "", ErrNoContent
	}
	return truncateContent(text, e.maxChars), nil
}

func (e *Extractor) extractMarkdown(body []byte, pageURL *url.URL) (string, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{OriginalURL: pageURL})
	if err == nil && result != nil && result.ContentNode != nil {
		htmlStr, err := RenderNodeToString(result.ContentNode)
		if err == nil {
			md, err := htmltomarkdown.ConvertString(htmlStr)
			if err == nil && strings.TrimSpace(md) != "" {
				return md, nil
			}
		}
	} else if err != nil {
		e.logger.Debug("trafilatura: extraction failed, converting whole document",
			zap.String("url", pageURL.String()),
			zap.Error(err))
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	return md, nil
}

func (e *Extractor) extractText(body []byte, pageURL *url.URL) (string, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{OriginalURL: pageURL})
	if err == nil && result != nil && strings.TrimSpace(result.ContentText) != "" {
		return result.ContentText, nil
	}

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}
	e.logger.Debug("readability: no article found, falling back to visible text",
		zap.String("url", pageURL.String()))

	return visibleText(body)
}

// visibleText joins the text of content elements, skipping page chrome.
func visibleText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var texts []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, td").Each(func(i int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			texts = append(texts, text)
		}
	})
	if len(texts) == 0 {
		texts = append(texts, strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	}

	return strings.Join(texts, "\n"), nil
}

func RenderNodeToString(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncateContent keeps the head and tail of content when it is longer
// than maxChars. maxChars <= 0 disables truncation.
func truncateContent(content string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	half := maxChars / 2
	head := string(runes[:half])
	tail := string(runes[len(runes)-half:])
	return head + fmt.Sprintf("\n..._This content has been truncated to stay below %d characters_...\n", maxChars) + tail
}

func normalizeContentType(value string) string {
	parts := strings.Split(value, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}
