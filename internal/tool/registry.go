package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"llmbridge/internal/classify"
	"llmbridge/internal/llm"
)

// Tool is the interface for caller-supplied tool executors.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry manages available tools. It is the execution-side
// collaborator: the bridge pairs its results with emitted tool calls
// but never runs tools of its own accord.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return t, nil
}

// Definitions returns tool definitions for chat requests.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Run executes each tool call and returns paired results. Failures
// become standardized tool-error payloads with sanitized context, never
// raw error text.
func (r *Registry) Run(ctx context.Context, classifier *classify.Classifier, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(calls))
	for _, tc := range calls {
		result := llm.ToolResult{ToolCallID: tc.ID, Name: tc.Name}

		t, err := r.Get(tc.Name)
		if err == nil {
			var output string
			output, err = t.Execute(ctx, tc.Arguments)
			if err == nil {
				result.Content = output
				results = append(results, result)
				continue
			}
		}

		payload := classifier.ToolError(err, map[string]any{
			"tool":         tc.Name,
			"tool_call_id": tc.ID,
		})
		encoded, _ := json.Marshal(payload)
		result.Content = string(encoded)
		result.IsError = true
		results = append(results, result)
	}
	return results
}
