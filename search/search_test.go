package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const ddgPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com/buy">Buy cats</a>
  <a class="result__snippet">Sponsored</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fen.wikipedia.org%2Fwiki%2FCat&amp;rut=abc">Cat - Wikipedia</a></h2>
  <a class="result__snippet">The cat is a small   domesticated carnivorous mammal.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://example.org/dogs">All about dogs</a></h2>
  <a class="result__snippet">Dogs are loyal.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="javascript:void(0)">Broken</a></h2>
</div>
</body></html>`

func TestDuckDuckGoSearchEngine_Search(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer ts.Close()

	engine := NewDuckDuckGoSearchEngine(ts.Client(), zap.NewNop(), 10).WithBaseURL(ts.URL)
	results, err := engine.Search(context.Background(), &SearchRequest{Query: "cats and dogs"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "cats and dogs" {
		t.Errorf("expected query to be forwarded, got %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].URL != "https://en.wikipedia.org/wiki/Cat" {
		t.Errorf("expected redirect link to be decoded, got %s", results[0].URL)
	}
	if results[0].Title != "Cat - Wikipedia" {
		t.Errorf("unexpected title %q", results[0].Title)
	}
	if !strings.HasPrefix(results[0].Snippet, "The cat is a small") {
		t.Errorf("unexpected snippet %q", results[0].Snippet)
	}
	if results[1].URL != "https://example.org/dogs" {
		t.Errorf("unexpected second url %s", results[1].URL)
	}
	if results[1].Metadata["position"] != "2" {
		t.Errorf("expected position 2, got %s", results[1].Metadata["position"])
	}
}

func TestDuckDuckGoSearchEngine_Limit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer ts.Close()

	engine := NewDuckDuckGoSearchEngine(ts.Client(), zap.NewNop(), 10).WithBaseURL(ts.URL)
	results, err := engine.Search(context.Background(), &SearchRequest{Query: "cats", MaxResults: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestDuckDuckGoSearchEngine_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	engine := NewDuckDuckGoSearchEngine(ts.Client(), zap.NewNop(), 10).WithBaseURL(ts.URL)

	if _, err := engine.Search(context.Background(), &SearchRequest{Query: "cats"}); err == nil {
		t.Error("expected error on rate limited response")
	}
	if _, err := engine.Search(context.Background(), &SearchRequest{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSerpApiSearchEngine_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "secret" {
			t.Errorf("expected api key to be sent")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"organic_results":[
			{"position":1,"title":"Cats","link":"https://u1","snippet":"All about cats"},
			{"position":2,"title":"Dogs","link":"https://u2","snippet":"All about dogs"}
		],"search_metadata":{"status":"Success"}}`)
	}))
	defer ts.Close()

	engine := NewSerpApiSearchEngine(ts.Client(), "secret").WithBaseURL(ts.URL)
	results, err := engine.Search(context.Background(), &SearchRequest{Query: "cats"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://u1" || results[0].Snippet != "All about cats" {
		t.Errorf("unexpected first result %+v", results[0])
	}
}

func TestSerpApiSearchEngine_ProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"Invalid API key."}`)
	}))
	defer ts.Close()

	engine := NewSerpApiSearchEngine(ts.Client(), "bad").WithBaseURL(ts.URL)
	if _, err := engine.Search(context.Background(), &SearchRequest{Query: "cats"}); err == nil {
		t.Error("expected provider error to be returned")
	}
}

func TestNormalizeResults(t *testing.T) {
	in := []SearchResult{
		{URL: "  https://a  ", Title: "  Hello\n  World ", Snippet: "\tfoo  bar "},
		{URL: "", Title: "no url"},
		{URL: "https://b", Title: "", Snippet: ""},
	}
	out := NormalizeResults(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].URL != "https://a" || out[0].Title != "Hello World" || out[0].Snippet != "foo bar" {
		t.Errorf("unexpected normalization %+v", out[0])
	}
	if in[0].Title != "  Hello\n  World " {
		t.Error("input must not be mutated")
	}
}

func TestResolveDuckDuckGoLink(t *testing.T) {
	testCases := []struct {
		name string
		href string
		want string
	}{
		{"Redirect", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=x", "https://go.dev/"},
		{"Direct", "https://go.dev/doc", "https://go.dev/doc"},
		{"RedirectWithoutTarget", "https://duckduckgo.com/l/?rut=x", ""},
		{"Javascript", "javascript:void(0)", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveDuckDuckGoLink(tc.href); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLinksToResults(t *testing.T) {
	raw := []map[string]string{
		{"href": "https://a", "text": "Alpha", "snippet": "Alpha first letter"},
		{"href": "https://b", "text": "Beta", "snippet": "Beta"},
		{"href": "https://c", "text": "Gamma", "snippet": ""},
	}
	results := linksToResults(raw, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Snippet != "first letter" {
		t.Errorf("expected title to be stripped from snippet, got %q", results[0].Snippet)
	}
	if results[1].Snippet != "" {
		t.Errorf("expected empty snippet, got %q", results[1].Snippet)
	}
}

func TestNewEngine(t *testing.T) {
	testCases := []struct {
		provider string
		wantErr  bool
	}{
		{"", false},
		{"duckduckgo", false},
		{"SerpApi", false},
		{"browser", false},
		{"bing", true},
	}

	for _, tc := range testCases {
		t.Run(tc.provider, func(t *testing.T) {
			engine, err := NewEngine(EngineConfig{Provider: tc.provider}, nil, zap.NewNop())
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil || engine == nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
