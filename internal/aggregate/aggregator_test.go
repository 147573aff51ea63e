package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"llmbridge/internal/llm"
)

func chunkChan(chunks ...*llm.StreamChunk) <-chan *llm.StreamChunk {
	ch := make(chan *llm.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestStreamConcatenation(t *testing.T) {
	a := New(nil)

	resp, err := a.Stream(context.Background(), chunkChan(
		&llm.StreamChunk{Content: "Hello"},
		&llm.StreamChunk{Content: " there"},
		nil,
	), nil, time.Now())

	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Hello there" {
		t.Fatalf("expected %q, got %q", "Hello there", resp.Content)
	}
	if !resp.Finished {
		t.Fatal("response without tool calls is trivially finished")
	}
}

func TestStreamUsageSummedAndRecomputed(t *testing.T) {
	a := New(nil)

	// Upstream totals are wrong on purpose; the recomputed total must
	// be prompt + completion.
	resp, _ := a.Stream(context.Background(), chunkChan(
		&llm.StreamChunk{Content: "x", Usage: &llm.UsageStats{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 999}},
		&llm.StreamChunk{Content: "y", Usage: &llm.UsageStats{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 999}},
	), nil, time.Now())

	if resp.Usage == nil {
		t.Fatal("expected usage")
	}
	if resp.Usage.PromptTokens != 15 || resp.Usage.CompletionTokens != 5 {
		t.Fatalf("unexpected usage sums: %+v", resp.Usage)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Fatalf("total must be recomputed, got %d", resp.Usage.TotalTokens)
	}
}

func TestStreamFinishReasonFromLastCarrier(t *testing.T) {
	a := New(nil)

	resp, _ := a.Stream(context.Background(), chunkChan(
		&llm.StreamChunk{Content: "a"},
		&llm.StreamChunk{FinishReason: "stop"},
	), nil, time.Now())

	if resp.FinishReason != "stop" {
		t.Fatalf("expected stop, got %q", resp.FinishReason)
	}
}

func TestStreamToolCallDeduplication(t *testing.T) {
	a := New(nil)

	first := llm.ToolCall{ID: "tc1", Name: "search", Arguments: json.RawMessage(`{"q":"old"}`)}
	second := llm.ToolCall{ID: "tc1", Name: "search", Arguments: json.RawMessage(`{"q":"new"}`)}
	other := llm.ToolCall{ID: "tc2", Name: "fetch"}

	resp, _ := a.Stream(context.Background(), chunkChan(
		&llm.StreamChunk{ToolCalls: []llm.ToolCall{first}},
		&llm.StreamChunk{ToolCalls: []llm.ToolCall{other, second}},
	), nil, time.Now())

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("expected 2 deduplicated calls, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].ID != "tc1" || string(resp.ToolCalls[0].Arguments) != `{"q":"new"}` {
		t.Fatalf("last write per id must win, got %+v", resp.ToolCalls[0])
	}
	if resp.ToolCalls[1].ID != "tc2" {
		t.Fatalf("first-seen order must be preserved, got %+v", resp.ToolCalls)
	}
}

func TestStreamCancellationReturnsPartial(t *testing.T) {
	a := New(nil)

	ch := make(chan *llm.StreamChunk, 1)
	ch <- &llm.StreamChunk{Content: "partial"}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan *llm.AggregatedResponse, 1)
	go func() {
		resp, _ := a.Stream(ctx, ch, nil, time.Now())
		done <- resp
	}()

	// Let the buffered chunk drain, then cancel mid-stream.
	time.Sleep(20 * time.Millisecond)
	cancel()

	resp := <-done
	if resp.Content != "partial" {
		t.Fatalf("partial content must be kept, got %q", resp.Content)
	}
	if resp.FinishReason != FinishReasonIncomplete {
		t.Fatalf("expected %q, got %q", FinishReasonIncomplete, resp.FinishReason)
	}
}

func TestStreamErrorSurfacedWithPartial(t *testing.T) {
	a := New(nil)

	upstream := errors.New("connection reset by peer")
	resp, err := a.Stream(context.Background(), chunkChan(
		&llm.StreamChunk{Content: "partial answer"},
		&llm.StreamChunk{FinishReason: "error", Err: upstream},
	), nil, time.Now())

	if !errors.Is(err, upstream) {
		t.Fatalf("upstream error must be surfaced, got %v", err)
	}
	if resp.Content != "partial answer" {
		t.Fatalf("partial content must be kept alongside the error, got %q", resp.Content)
	}
	if resp.FinishReason != "error" {
		t.Fatalf("expected error finish reason, got %q", resp.FinishReason)
	}
}

func TestCompleteFromParts(t *testing.T) {
	a := New(nil)

	resp := a.Complete(&llm.RawResponse{
		Parts: []llm.ContentPart{
			{Type: llm.PartText, Text: "Hello"},
			{Type: llm.PartImage, Data: "base64..."},
			{Type: llm.PartText, Text: " world"},
		},
	}, nil, time.Now())

	if resp.Content != "Hello world" {
		t.Fatalf("only text parts contribute, got %q", resp.Content)
	}
}

func TestCompleteEmptyFallback(t *testing.T) {
	a := New(nil)

	resp := a.Complete(&llm.RawResponse{}, nil, time.Now())
	if resp.Content != llm.EmptyContentFallback {
		t.Fatalf("expected fallback content, got %q", resp.Content)
	}
	if resp.Type() != llm.ResponseEmpty {
		t.Fatalf("fallback must not count as content, got %s", resp.Type())
	}
}

func TestFinishedSubsetSemantics(t *testing.T) {
	a := New(nil)

	raw := &llm.RawResponse{
		ToolCalls: []llm.ToolCall{{ID: "tc1", Name: "search"}},
	}

	resp := a.Complete(raw, nil, time.Now())
	if resp.Finished {
		t.Fatal("unanswered tool call must leave the response unfinished")
	}

	resp = a.Complete(raw, []llm.ToolResult{{ToolCallID: "tc1", Content: "ok"}}, time.Now())
	if !resp.Finished {
		t.Fatal("matched tool call must finish the response")
	}

	// Extra stale results never flip finished back.
	resp = a.Complete(raw, []llm.ToolResult{
		{ToolCallID: "tc1", Content: "ok"},
		{ToolCallID: "stale", Content: "old"},
	}, time.Now())
	if !resp.Finished {
		t.Fatal("extra results must not unfinish the response")
	}
}

func TestUsageNotTrustedOnComplete(t *testing.T) {
	a := New(nil)

	resp := a.Complete(&llm.RawResponse{
		Text:  "hi",
		Usage: &llm.UsageStats{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 42},
	}, nil, time.Now())

	if resp.Usage.TotalTokens != 10 {
		t.Fatalf("total must be recomputed, got %d", resp.Usage.TotalTokens)
	}
}

func TestResponseTypes(t *testing.T) {
	tests := []struct {
		name string
		resp llm.AggregatedResponse
		want llm.ResponseType
	}{
		{"content only", llm.AggregatedResponse{Content: "hi"}, llm.ResponseContentOnly},
		{"tools only", llm.AggregatedResponse{ToolCalls: []llm.ToolCall{{ID: "1"}}}, llm.ResponseToolsOnly},
		{"both", llm.AggregatedResponse{Content: "hi", ToolCalls: []llm.ToolCall{{ID: "1"}}}, llm.ResponseContentWithTools},
		{"empty", llm.AggregatedResponse{}, llm.ResponseEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Type(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
