package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"webanswer/journal"
	"webanswer/relevance"
	"webanswer/search"

	"go.uber.org/zap"
)

type fakeSearch struct {
	results []search.SearchResult
	err     error
	panics  bool
	calls   atomic.Int32
	lastReq *search.SearchRequest
	mu      sync.Mutex
}

func (f *fakeSearch) Search(ctx context.Context, req *search.SearchRequest) ([]search.SearchResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.panics {
		panic("engine exploded")
	}
	return f.results, f.err
}

type fakeRetriever struct {
	pages map[string]string
	err   error
	mu    sync.Mutex
	urls  []string
}

func (f *fakeRetriever) FetchPage(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("http 404: %s", url)
	}
	return page, nil
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (m *memoryJournal) Record(ctx context.Context, entry journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

var petResults = []search.SearchResult{
	{Title: "Dogs", URL: "https://a.example/dogs", Snippet: "about dogs"},
	{Title: "Cats", URL: "https://b.example/cats", Snippet: "all about cats"},
}

func TestGetAnswerFromWeb(t *testing.T) {
	testCases := []struct {
		name      string
		searcher  *fakeSearch
		retriever *fakeRetriever
		query     string
		want      string
		wantURL   string
	}{
		{
			name:      "FetchesTopRankedPage",
			searcher:  &fakeSearch{results: petResults},
			retriever: &fakeRetriever{pages: map[string]string{"https://b.example/cats": "Cats are small carnivores."}},
			query:     "cats",
			want:      "Cats are small carnivores.",
			wantURL:   "https://b.example/cats",
		},
		{
			name:      "NoOverlapKeepsEngineOrder",
			searcher:  &fakeSearch{results: petResults},
			retriever: &fakeRetriever{pages: map[string]string{"https://a.example/dogs": "Dogs page"}},
			query:     "giraffes",
			want:      "Dogs page",
			wantURL:   "https://a.example/dogs",
		},
		{
			name:      "EmptyResults",
			searcher:  &fakeSearch{results: nil},
			retriever: &fakeRetriever{},
			query:     "cats",
			want:      FailureMessage,
		},
		{
			name: "ResultsWithoutURL",
			searcher: &fakeSearch{results: []search.SearchResult{
				{Title: "Cats", URL: "   ", Snippet: "all about cats"},
			}},
			retriever: &fakeRetriever{},
			query:     "cats",
			want:      FailureMessage,
		},
		{
			name:      "SearchError",
			searcher:  &fakeSearch{err: errors.New("rate limited")},
			retriever: &fakeRetriever{},
			query:     "cats",
			want:      FailureMessage,
		},
		{
			name:      "FetchError",
			searcher:  &fakeSearch{results: petResults},
			retriever: &fakeRetriever{err: errors.New("http 404")},
			query:     "cats",
			want:      FailureMessage,
			wantURL:   "https://b.example/cats",
		},
		{
			name:      "SearchPanics",
			searcher:  &fakeSearch{panics: true},
			retriever: &fakeRetriever{},
			query:     "cats",
			want:      FailureMessage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(tc.searcher, relevance.NewBM25Ranker(), tc.retriever, zap.NewNop())

			got := o.GetAnswerFromWeb(context.Background(), tc.query)
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
			if tc.wantURL == "" {
				if len(tc.retriever.urls) != 0 {
					t.Errorf("expected no fetch, got %v", tc.retriever.urls)
				}
				return
			}
			if len(tc.retriever.urls) != 1 || tc.retriever.urls[0] != tc.wantURL {
				t.Errorf("expected a single fetch of %s, got %v", tc.wantURL, tc.retriever.urls)
			}
		})
	}
}

func TestAnswer_TypedErrors(t *testing.T) {
	testCases := []struct {
		name      string
		searcher  *fakeSearch
		retriever *fakeRetriever
		target    error
		other     error
	}{
		{"SearchError", &fakeSearch{err: errors.New("boom")}, &fakeRetriever{}, ErrSearchUnavailable, ErrFetchFailed},
		{"NoResults", &fakeSearch{}, &fakeRetriever{}, ErrSearchUnavailable, ErrFetchFailed},
		{"FetchError", &fakeSearch{results: petResults}, &fakeRetriever{err: errors.New("timeout")}, ErrFetchFailed, ErrSearchUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(tc.searcher, relevance.NewBM25Ranker(), tc.retriever, zap.NewNop())

			answer, err := o.Answer(context.Background(), "cats")
			if answer != nil {
				t.Errorf("expected no answer, got %+v", answer)
			}
			if !errors.Is(err, tc.target) {
				t.Errorf("expected %v, got %v", tc.target, err)
			}
			if errors.Is(err, tc.other) {
				t.Errorf("did not expect %v to match %v", err, tc.other)
			}
			var pe *Error
			if !errors.As(err, &pe) || pe.Query != "cats" {
				t.Errorf("expected *Error carrying the query, got %#v", err)
			}
		})
	}
}

func TestAnswer_Success(t *testing.T) {
	s := &fakeSearch{results: petResults}
	r := &fakeRetriever{pages: map[string]string{"https://b.example/cats": "Cats page"}}
	o := NewOrchestrator(s, relevance.NewBM25Ranker(), r, zap.NewNop(), WithMaxResults(5))

	answer, err := o.Answer(context.Background(), "cats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.URL != "https://b.example/cats" || answer.Title != "Cats" || answer.Content != "Cats page" {
		t.Errorf("unexpected answer: %+v", answer)
	}
	if answer.Score <= 0 {
		t.Errorf("expected positive score, got %f", answer.Score)
	}
	if answer.Candidates != 2 {
		t.Errorf("expected 2 candidates, got %d", answer.Candidates)
	}
	if answer.InvocationID == "" {
		t.Error("expected invocation id")
	}
	if s.lastReq.Query != "cats" || s.lastReq.MaxResults != 5 {
		t.Errorf("unexpected search request: %+v", s.lastReq)
	}
}

func TestAnswer_EmptyQueryReachesEngine(t *testing.T) {
	s := &fakeSearch{err: search.ErrEmptyQuery}
	o := NewOrchestrator(s, relevance.NewBM25Ranker(), &fakeRetriever{}, zap.NewNop())

	_, err := o.Answer(context.Background(), "")
	if !errors.Is(err, ErrSearchUnavailable) || !errors.Is(err, search.ErrEmptyQuery) {
		t.Errorf("expected search unavailable wrapping ErrEmptyQuery, got %v", err)
	}
	if s.calls.Load() != 1 {
		t.Errorf("expected engine to be called once, got %d", s.calls.Load())
	}
}

func TestAnswer_Journal(t *testing.T) {
	testCases := []struct {
		name        string
		searcher    *fakeSearch
		retriever   *fakeRetriever
		wantOutcome string
		wantURL     string
		wantLength  int
	}{
		{
			name:        "Answered",
			searcher:    &fakeSearch{results: petResults},
			retriever:   &fakeRetriever{pages: map[string]string{"https://b.example/cats": "Cats page"}},
			wantOutcome: journal.OutcomeAnswered,
			wantURL:     "https://b.example/cats",
			wantLength:  len("Cats page"),
		},
		{
			name:        "SearchUnavailable",
			searcher:    &fakeSearch{},
			retriever:   &fakeRetriever{},
			wantOutcome: journal.OutcomeSearchUnavailable,
		},
		{
			name:        "FetchFailed",
			searcher:    &fakeSearch{results: petResults},
			retriever:   &fakeRetriever{err: errors.New("refused")},
			wantOutcome: journal.OutcomeFetchFailed,
			wantURL:     "https://b.example/cats",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			j := &memoryJournal{}
			o := NewOrchestrator(tc.searcher, relevance.NewBM25Ranker(), tc.retriever, zap.NewNop(), WithJournal(j))

			o.GetAnswerFromWeb(context.Background(), "cats")

			if len(j.entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(j.entries))
			}
			e := j.entries[0]
			if e.Outcome != tc.wantOutcome || e.URL != tc.wantURL || e.ContentLength != tc.wantLength {
				t.Errorf("unexpected entry: %+v", e)
			}
			if e.Query != "cats" || e.ID == "" || e.StartedAt.IsZero() {
				t.Errorf("entry missing identity fields: %+v", e)
			}
			if tc.wantOutcome != journal.OutcomeAnswered && e.Error == "" {
				t.Error("expected error text on failed entry")
			}
		})
	}
}

func TestAnswer_JournalFailureIgnored(t *testing.T) {
	j := &memoryJournal{err: errors.New("disk full")}
	r := &fakeRetriever{pages: map[string]string{"https://b.example/cats": "Cats page"}}
	o := NewOrchestrator(&fakeSearch{results: petResults}, relevance.NewBM25Ranker(), r, zap.NewNop(), WithJournal(j))

	if got := o.GetAnswerFromWeb(context.Background(), "cats"); got != "Cats page" {
		t.Errorf("expected answer despite journal failure, got %q", got)
	}
}

func TestAnswer_DoesNotMutateResults(t *testing.T) {
	results := []search.SearchResult{
		{Title: "  Dogs ", URL: " https://a.example/dogs ", Snippet: "about   dogs"},
		{Title: "Cats", URL: "https://b.example/cats", Snippet: "all about cats"},
	}
	r := &fakeRetriever{pages: map[string]string{"https://b.example/cats": "Cats page"}}
	o := NewOrchestrator(&fakeSearch{results: results}, relevance.NewBM25Ranker(), r, zap.NewNop())

	o.GetAnswerFromWeb(context.Background(), "cats")

	if results[0].Title != "  Dogs " || results[0].URL != " https://a.example/dogs " {
		t.Errorf("engine results were mutated: %+v", results[0])
	}
}

func TestAnswerAll(t *testing.T) {
	pages := map[string]string{}
	var results []search.SearchResult
	for i := 0; i < 8; i++ {
		url := fmt.Sprintf("https://example.com/topic%d", i)
		results = append(results, search.SearchResult{Title: fmt.Sprintf("topic%d", i), URL: url})
		pages[url] = fmt.Sprintf("page %d", i)
	}
	o := NewOrchestrator(&fakeSearch{results: results}, relevance.NewBM25Ranker(), &fakeRetriever{pages: pages}, zap.NewNop())

	queries := make([]string, 8)
	for i := range queries {
		queries[i] = fmt.Sprintf("topic%d", i)
	}

	for _, limit := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("Limit%d", limit), func(t *testing.T) {
			answers := o.AnswerAll(context.Background(), queries, limit)
			if len(answers) != len(queries) {
				t.Fatalf("expected %d answers, got %d", len(queries), len(answers))
			}
			for i, a := range answers {
				if want := fmt.Sprintf("page %d", i); a != want {
					t.Errorf("answer %d: expected %q, got %q", i, want, a)
				}
			}
		})
	}
}

func TestAnswerAll_IndependentFailures(t *testing.T) {
	r := &fakeRetriever{pages: map[string]string{"https://b.example/cats": "Cats page"}}
	o := NewOrchestrator(&fakeSearch{results: petResults}, relevance.NewBM25Ranker(), r, zap.NewNop())

	answers := o.AnswerAll(context.Background(), []string{"cats", "dogs"}, 2)
	if answers[0] != "Cats page" {
		t.Errorf("expected cats page, got %q", answers[0])
	}
	if answers[1] != FailureMessage {
		t.Errorf("expected failure for dogs, got %q", answers[1])
	}
}

func TestError_Message(t *testing.T) {
	err := newFetchError("cats", "https://b.example/cats", errors.New("http 404"))
	msg := err.Error()
	for _, part := range []string{"fetch failed", "cats", "https://b.example/cats", "http 404"} {
		if !strings.Contains(msg, part) {
			t.Errorf("expected %q in %q", part, msg)
		}
	}
}
