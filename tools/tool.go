package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrDuplicateTool     = errors.New("tool already registered")
	ErrInvalidArguments  = errors.New("invalid arguments")
	ErrToolNotConfigured = errors.New("tool not configured")
)

// Tool is a capability an agent loop can call by name.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns a JSON schema object describing the arguments.
	Parameters() map[string]any
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Spec is the serializable description of a Tool.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func Describe(t Tool) Spec {
	return Spec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

type param struct {
	name        string
	description string
}

// stringParams builds an object schema whose properties are all required
// strings.
func stringParams(params ...param) map[string]any {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		properties[p.name] = map[string]any{
			"type":        "string",
			"description": p.description,
		}
		required = append(required, p.name)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func requiredParams(schema map[string]any) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// readString reads a required string argument.
func readString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: parameter %q is required", ErrInvalidArguments, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: parameter %q must be a string", ErrInvalidArguments, key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: parameter %q is empty", ErrInvalidArguments, key)
	}
	return s, nil
}
