package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"llmbridge/internal/classify"
	"llmbridge/internal/llm"
	"llmbridge/internal/security"
)

type mockTool struct {
	name   string
	output string
	err    error
}

func (m *mockTool) Name() string                { return m.name }
func (m *mockTool) Description() string         { return "mock tool" }
func (m *mockTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (m *mockTool) Execute(context.Context, json.RawMessage) (string, error) {
	return m.output, m.err
}

func newTestClassifier() *classify.Classifier {
	return classify.NewClassifier(security.NewSanitizer(), nil)
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "search"})

	if _, err := r.Get("search"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestDefinitions(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "search"})
	r.Register(&mockTool{name: "fetch"})

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	for _, d := range defs {
		if len(d.Parameters) == 0 {
			t.Fatalf("definition %s missing parameters", d.Name)
		}
	}
}

func TestRunSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "search", output: "3 hits"})

	results := r.Run(context.Background(), newTestClassifier(), []llm.ToolCall{
		{ID: "tc1", Name: "search"},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].IsError || results[0].Content != "3 hits" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if results[0].ToolCallID != "tc1" {
		t.Fatalf("result must pair with its call, got %q", results[0].ToolCallID)
	}
}

func TestRunFailureStandardized(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "search", err: errors.New("execution timed out")})

	results := r.Run(context.Background(), newTestClassifier(), []llm.ToolCall{
		{ID: "tc1", Name: "search"},
	})
	if !results[0].IsError {
		t.Fatal("expected error result")
	}

	var payload classify.ToolErrorResponse
	if err := json.Unmarshal([]byte(results[0].Content), &payload); err != nil {
		t.Fatalf("error content must be the standardized payload: %v", err)
	}
	if !payload.Error {
		t.Fatal("error flag must be set")
	}
	if payload.Category != classify.CategoryExecution {
		t.Fatalf("expected execution_error, got %s", payload.Category)
	}
	if payload.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if payload.Context["tool"] != "search" || payload.Context["tool_call_id"] != "tc1" {
		t.Fatalf("expected call context, got %v", payload.Context)
	}
}

func TestRunUnknownTool(t *testing.T) {
	r := NewRegistry()

	results := r.Run(context.Background(), newTestClassifier(), []llm.ToolCall{
		{ID: "tc1", Name: "ghost"},
	})
	if !results[0].IsError {
		t.Fatal("unknown tool must produce an error result")
	}
	if !strings.Contains(results[0].Content, "ghost") {
		t.Fatalf("payload should name the tool, got %q", results[0].Content)
	}
}
