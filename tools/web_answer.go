package tools

import "context"

// Answerer is satisfied by *pipeline.Orchestrator.
type Answerer interface {
	GetAnswerFromWeb(ctx context.Context, query string) string
}

type WebAnswerTool struct {
	answerer Answerer
}

func NewWebAnswerTool(answerer Answerer) *WebAnswerTool {
	return &WebAnswerTool{answerer: answerer}
}

func (t *WebAnswerTool) Name() string {
	return "get_answer_from_web"
}

func (t *WebAnswerTool) Description() string {
	return "Searches the web for the query, re-ranks the results by relevance and returns the content of the best matching page."
}

func (t *WebAnswerTool) Parameters() map[string]any {
	return stringParams(param{"query", "The query to search the web for."})
}

func (t *WebAnswerTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, err := readString(args, "query")
	if err != nil {
		return "", err
	}
	return t.answerer.GetAnswerFromWeb(ctx, query), nil
}
