package tools

import (
	"context"
	"fmt"
)

type FinalAnswerTool struct{}

func (FinalAnswerTool) Name() string {
	return "final_answer"
}

func (FinalAnswerTool) Description() string {
	return "Provides a final answer to the given problem."
}

func (FinalAnswerTool) Parameters() map[string]any {
	return stringParams(param{"answer", "The final answer to the problem."})
}

// Invoke returns the answer exactly as given.
func (FinalAnswerTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	answer, ok := args["answer"].(string)
	if !ok {
		return "", fmt.Errorf("%w: parameter %q must be a string", ErrInvalidArguments, "answer")
	}
	return answer, nil
}
