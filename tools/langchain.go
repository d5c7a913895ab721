package tools

import (
	"context"
	"encoding/json"
	"strings"

	lctools "github.com/tmc/langchaingo/tools"
)

type langchainTool struct {
	tool Tool
}

// AsLangchainTool exposes t to langchaingo agents. The agent input may be a
// JSON object of arguments or the bare value of the first required
// parameter.
func AsLangchainTool(t Tool) lctools.Tool {
	return langchainTool{tool: t}
}

// LangchainTools adapts every registered tool.
func (r *Registry) LangchainTools() []lctools.Tool {
	tools := r.List()
	out := make([]lctools.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, AsLangchainTool(t))
	}
	return out
}

func (l langchainTool) Name() string {
	return l.tool.Name()
}

func (l langchainTool) Description() string {
	return l.tool.Description()
}

func (l langchainTool) Call(ctx context.Context, input string) (string, error) {
	return l.tool.Invoke(ctx, parseToolInput(input, l.tool.Parameters()))
}

func parseToolInput(input string, schema map[string]any) map[string]any {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		var args map[string]any
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			return args
		}
	}

	required := requiredParams(schema)
	if len(required) == 0 {
		return map[string]any{}
	}
	return map[string]any{required[0]: input}
}
