package llmbridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"llmbridge/internal/classify"
	"llmbridge/internal/eventbus"
)

type fakeStore struct {
	defaults map[string]string
	env      map[string]string
}

func (f *fakeStore) GetDefault(providerID string) (string, bool) {
	v, ok := f.defaults[providerID]
	return v, ok
}

func (f *fakeStore) GetEnv(name string) (string, bool) {
	v, ok := f.env[name]
	return v, ok
}

func TestSessionKeyWinsAndSynthesizesHeaders(t *testing.T) {
	b := New(nil, &fakeStore{defaults: map[string]string{"openai": "stored-key"}})
	b.SetSessionValue("openai", "sk-test-123")

	creds, err := b.AuthenticateForProvider("openai", RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if creds.Headers["authorization"] != "Bearer sk-test-123" {
		t.Fatalf("unexpected headers: %v", creds.Headers)
	}
}

func TestSessionIsolationBetweenBridges(t *testing.T) {
	store := &fakeStore{}
	b1 := New(nil, store)
	b2 := New(nil, store)

	b1.SetSessionValue("openai", "sk-bridge-one")

	if _, err := b2.AuthenticateForProvider("openai", RequestOptions{}); err == nil {
		t.Fatal("second bridge must not see the first bridge's session key")
	}
}

func TestAuthFailureIsClassified(t *testing.T) {
	b := New(nil, &fakeStore{})

	_, err := b.AuthenticateForProvider("openai", RequestOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	norm, ok := err.(*NormalizedError)
	if !ok {
		t.Fatalf("expected NormalizedError, got %T", err)
	}
	if norm.Reason != "key_not_found" {
		t.Fatalf("expected key_not_found, got %q", norm.Reason)
	}
	if !norm.Sanitized {
		t.Fatal("boundary errors must be sanitized")
	}
}

func TestMapErrorSanitizes(t *testing.T) {
	b := New(nil, nil)

	norm := b.MapError("request failed: api_key=sk-live-secret and timeout hit")
	if norm == nil {
		t.Fatal("expected normalized error")
	}
	if strings.Contains(norm.Details, "sk-live-secret") {
		t.Fatalf("raw secret leaked: %q", norm.Details)
	}
	if !strings.Contains(norm.Details, "[REDACTED]") {
		t.Fatalf("expected redaction marker, got %q", norm.Details)
	}
	if !norm.Sanitized {
		t.Fatal("expected sanitized flag")
	}
}

func TestConvertToolsFailureClassified(t *testing.T) {
	b := New(nil, nil)

	defs := []ToolDefinition{{Name: "broken", Parameters: []byte(`{not json`)}}
	_, err := b.ConvertTools("anthropic", defs)
	if err == nil {
		t.Fatal("expected error")
	}
	norm, ok := err.(*NormalizedError)
	if !ok {
		t.Fatalf("expected NormalizedError, got %T", err)
	}
	if norm.Category != classify.CategoryToolConversion {
		t.Fatalf("expected tool_conversion_error, got %s", norm.Category)
	}
}

func TestConvertToolsPerTarget(t *testing.T) {
	b := New(nil, nil)

	defs := []ToolDefinition{{
		Name:        "search",
		Description: "Search the web",
		Parameters:  []byte(`{"type":"object","properties":{"q":{"type":"string"}}}`),
	}}

	if _, err := b.ConvertTools("anthropic", defs); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ConvertTools("openai", defs); err != nil {
		t.Fatal(err)
	}
}

func TestAggregateAndFormatFailureSummary(t *testing.T) {
	b := New(nil, nil)

	raw := &RawResponse{
		ToolCalls: []ToolCall{{ID: "tc1", Name: "search"}},
	}
	results := []ToolResult{
		{ToolCallID: "tc1", Name: "search", Content: `{"error":true}`, IsError: true},
	}

	resp := b.AggregateResponse(raw, results, time.Now())
	if resp.Content != "" {
		t.Fatalf("tool-call-only payload keeps empty content, got %q", resp.Content)
	}
	if !resp.Finished {
		t.Fatal("answered tool call must finish the response")
	}

	got := b.FormatForUser(resp, "")
	if !strings.Contains(got, "failed") || !strings.Contains(got, "couldn't complete") {
		t.Fatalf("expected explicit failure summary, got %q", got)
	}
}

func TestStreamFailureClassifiedWithPartial(t *testing.T) {
	b := New(nil, nil)

	ch := make(chan *StreamChunk, 2)
	ch <- &StreamChunk{Content: "partial"}
	ch <- &StreamChunk{FinishReason: "error", Err: errors.New("connection reset by peer")}
	close(ch)

	resp, err := b.AggregateStreamingResponse(context.Background(), ch, nil, time.Now())
	if resp == nil || resp.Content != "partial" {
		t.Fatalf("partial content must be returned alongside the error, got %+v", resp)
	}
	norm, ok := err.(*NormalizedError)
	if !ok {
		t.Fatalf("expected NormalizedError, got %T", err)
	}
	if norm.Category != classify.CategoryNetwork {
		t.Fatalf("expected network_error, got %s", norm.Category)
	}
	if !norm.Sanitized {
		t.Fatal("stream failures must be sanitized before they surface")
	}
}

func TestEventBusObservesPipeline(t *testing.T) {
	b := New(nil, &fakeStore{defaults: map[string]string{"openai": "sk-default"}})

	if _, err := b.AuthenticateForProvider("openai", RequestOptions{}); err != nil {
		t.Fatal(err)
	}
	b.MapError("something odd")

	if b.Bus().Count(eventbus.TopicAuthResolved) != 1 {
		t.Fatal("auth resolution should publish an event")
	}
	if b.Bus().Count(eventbus.TopicErrorClassified) != 1 {
		t.Fatal("classification should publish an event")
	}
}

func TestExtractMetricsThroughFacade(t *testing.T) {
	b := New(nil, nil)

	resp := b.AggregateResponse(&RawResponse{
		Text:  "hi",
		Usage: &UsageStats{PromptTokens: 4, CompletionTokens: 6},
	}, nil, time.Now().Add(-10*time.Millisecond))

	m := b.ExtractMetrics(resp)
	if m.TotalTokens != 10 {
		t.Fatalf("expected 10 tokens, got %d", m.TotalTokens)
	}
	if m.ProcessingTime <= 0 {
		t.Fatalf("expected positive processing time, got %v", m.ProcessingTime)
	}
}
