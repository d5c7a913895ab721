package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webanswer/crawler"
	"webanswer/journal"
	"webanswer/logging"
	"webanswer/relevance"
	"webanswer/search"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNoResults = errors.New("no results with a URL")

// Recorder receives one journal entry per invocation.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Answer is the outcome of a successful invocation.
type Answer struct {
	InvocationID string  `json:"invocation_id"`
	Query        string  `json:"query"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
	Candidates   int     `json:"candidates"`
}

// Orchestrator runs search, rank and retrieve for one query at a time.
// It holds no per-invocation state, so a single value serves concurrent
// callers.
type Orchestrator struct {
	searcher   search.SearchEngine
	ranker     relevance.Ranker
	retriever  crawler.PageRetriever
	recorder   Recorder
	maxResults int
	logger     *zap.Logger
}

type Option func(*Orchestrator)

func WithJournal(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithMaxResults caps how many candidates are requested from the engine.
func WithMaxResults(n int) Option {
	return func(o *Orchestrator) {
		o.maxResults = n
	}
}

func NewOrchestrator(searcher search.SearchEngine, ranker relevance.Ranker, retriever crawler.PageRetriever, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		searcher:  searcher,
		ranker:    ranker,
		retriever: retriever,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetAnswerFromWeb returns the content of the most relevant page for query,
// or FailureMessage when any step fails.
func (o *Orchestrator) GetAnswerFromWeb(ctx context.Context, query string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic recovered",
				zap.String("query", query),
				zap.Any("panic", r))
			answer = FailureMessage
		}
	}()

	a, err := o.Answer(ctx, query)
	if err != nil {
		return FailureMessage
	}
	return a.Content
}

// Answer runs the pipeline and reports failures as *Error values matching
// ErrSearchUnavailable or ErrFetchFailed.
func (o *Orchestrator) Answer(ctx context.Context, query string) (*Answer, error) {
	id := logging.NewInvocationID()
	ctx = logging.WithInvocationID(ctx, id)
	logger := logging.FromContext(ctx, o.logger)

	start := time.Now()
	entry := journal.Entry{ID: id, Query: query, StartedAt: start}

	answer, err := o.run(ctx, logger, id, query, &entry)

	entry.Duration = time.Since(start)
	if err != nil {
		entry.Error = err.Error()
		if errors.Is(err, ErrFetchFailed) {
			entry.Outcome = journal.OutcomeFetchFailed
		} else {
			entry.Outcome = journal.OutcomeSearchUnavailable
		}
		logger.Warn("pipeline_failed",
			zap.String("query", query),
			zap.String("outcome", entry.Outcome),
			zap.Duration("took", entry.Duration),
			zap.Error(err))
	} else {
		entry.Outcome = journal.OutcomeAnswered
		entry.ContentLength = len(answer.Content)
		logger.Info("pipeline_answered",
			zap.String("query", query),
			zap.String("url", answer.URL),
			zap.Float64("score", answer.Score),
			zap.Int("content_length", entry.ContentLength),
			zap.Duration("took", entry.Duration))
	}
	o.record(ctx, logger, entry)

	return answer, err
}

func (o *Orchestrator) run(ctx context.Context, logger *zap.Logger, id, query string, entry *journal.Entry) (*Answer, error) {
	results, err := o.searcher.Search(ctx, &search.SearchRequest{
		Query:      query,
		MaxResults: o.maxResults,
	})
	if err != nil {
		return nil, newSearchError(query, err)
	}

	candidates := search.NormalizeResults(results)
	entry.Candidates = len(candidates)
	if len(candidates) == 0 {
		return nil, newSearchError(query, errNoResults)
	}

	ranked := o.ranker.Rank(candidates, query)
	if len(ranked) == 0 {
		return nil, newSearchError(query, fmt.Errorf("ranker returned no candidates out of %d", len(candidates)))
	}
	top := ranked[0]
	entry.URL = top.Result.URL

	logger.Debug("candidate_selected",
		zap.String("url", top.Result.URL),
		zap.String("title", top.Result.Title),
		zap.Float64("score", top.Score),
		zap.Int("candidates", len(candidates)))

	content, err := o.retriever.FetchPage(ctx, top.Result.URL)
	if err != nil {
		return nil, newFetchError(query, top.Result.URL, err)
	}

	return &Answer{
		InvocationID: id,
		Query:        query,
		URL:          top.Result.URL,
		Title:        top.Result.Title,
		Score:        top.Score,
		Content:      content,
		Candidates:   len(candidates),
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, logger *zap.Logger, entry journal.Entry) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("journal record failed", zap.Error(err))
	}
}

// AnswerAll answers each query independently, running at most limit
// invocations at once (limit <= 0 means no limit). Answers keep the order
// of queries.
func (o *Orchestrator) AnswerAll(ctx context.Context, queries []string, limit int) []string {
	answers := make([]string, len(queries))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, q := range queries {
		g.Go(func() error {
			answers[i] = o.GetAnswerFromWeb(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return answers
}
