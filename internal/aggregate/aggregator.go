package aggregate

import (
	"context"
	"strings"
	"time"

	"llmbridge/internal/eventbus"
	"llmbridge/internal/llm"
)

// FinishReasonIncomplete marks a stream that was cancelled before the
// upstream reported a finish reason. The partial response accumulated
// so far is still returned, never discarded.
const FinishReasonIncomplete = "incomplete"

// ToolResultStyle selects how tool results are woven into the textual
// content when formatting for a user.
type ToolResultStyle string

const (
	StyleIntegrated ToolResultStyle = "integrated"
	StyleAppended   ToolResultStyle = "appended"
	StyleSeparate   ToolResultStyle = "separate"
)

const appendedDelimiter = "\n\n---\n"

// Aggregator reconciles streaming deltas, complete payloads and
// tool-execution results into one canonical response. It spawns no
// goroutines of its own; a single stream is consumed strictly in
// arrival order.
type Aggregator struct {
	bus *eventbus.Bus
}

// New creates an aggregator. The bus may be nil.
func New(bus *eventbus.Bus) *Aggregator {
	return &Aggregator{bus: bus}
}

// Complete aggregates one non-streaming provider payload with any
// tool-execution results.
func (a *Aggregator) Complete(raw *llm.RawResponse, results []llm.ToolResult, startedAt time.Time) *llm.AggregatedResponse {
	resp := &llm.AggregatedResponse{
		ToolResults: results,
		Metadata:    map[string]any{},
	}
	if raw != nil {
		resp.Content = extractContent(raw.Text, raw.Parts)
		resp.ToolCalls = dedupeToolCalls(raw.ToolCalls)
		resp.FinishReason = raw.FinishReason
		if raw.Usage != nil {
			usage := llm.UsageStats{}
			usage.Add(*raw.Usage)
			resp.Usage = &usage
		}
		for k, v := range raw.Metadata {
			resp.Metadata[k] = v
		}
	}
	return a.finalize(resp, startedAt)
}

// Stream consumes chunks until the channel closes or ctx is cancelled,
// then aggregates what arrived. Nil chunks are skipped without error.
// Content is concatenated in arrival order; usage is summed field-wise
// with the total recomputed; tool calls are deduplicated by id with the
// last write per id winning. When a chunk carries an upstream stream
// failure the partial response is still returned, together with that
// error so callers can classify it.
func (a *Aggregator) Stream(ctx context.Context, chunks <-chan *llm.StreamChunk, results []llm.ToolResult, startedAt time.Time) (*llm.AggregatedResponse, error) {
	var (
		content   strings.Builder
		usage     llm.UsageStats
		gotUsage  bool
		finish    string
		toolCalls []llm.ToolCall
		streamErr error
	)

consume:
	for {
		select {
		case <-ctx.Done():
			if finish == "" {
				finish = FinishReasonIncomplete
			}
			break consume
		case chunk, ok := <-chunks:
			if !ok {
				break consume
			}
			if chunk == nil {
				continue
			}
			content.WriteString(extractContent(chunk.Content, chunk.Parts))
			toolCalls = append(toolCalls, chunk.ToolCalls...)
			if chunk.FinishReason != "" {
				finish = chunk.FinishReason
			}
			if chunk.Usage != nil {
				usage.Add(*chunk.Usage)
				gotUsage = true
			}
			if chunk.Err != nil {
				streamErr = chunk.Err
			}
		}
	}

	resp := &llm.AggregatedResponse{
		Content:      content.String(),
		ToolCalls:    dedupeToolCalls(toolCalls),
		ToolResults:  results,
		FinishReason: finish,
		Metadata:     map[string]any{},
	}
	if gotUsage {
		resp.Usage = &usage
	}
	return a.finalize(resp, startedAt), streamErr
}

func (a *Aggregator) finalize(resp *llm.AggregatedResponse, startedAt time.Time) *llm.AggregatedResponse {
	if resp.Content == "" && len(resp.ToolCalls) == 0 {
		resp.Content = llm.EmptyContentFallback
	}
	resp.Finished = finished(resp.ToolCalls, resp.ToolResults)
	resp.Metadata["started_at"] = startedAt
	resp.Metadata["completed_at"] = time.Now()
	if a.bus != nil {
		a.bus.Publish(eventbus.TopicResponseAggregated, string(resp.Type()))
	}
	return resp
}

// extractContent applies the content extraction rules: a part list
// takes precedence over plain text, and only text parts contribute,
// concatenated in order with no separator.
func extractContent(text string, parts []llm.ContentPart) string {
	if parts == nil {
		return text
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == llm.PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// dedupeToolCalls collapses duplicate tool call ids. The last write per
// id wins; first-seen order is preserved.
func dedupeToolCalls(calls []llm.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	index := make(map[string]int, len(calls))
	out := make([]llm.ToolCall, 0, len(calls))
	for _, tc := range calls {
		if i, seen := index[tc.ID]; seen {
			out[i] = tc
			continue
		}
		index[tc.ID] = len(out)
		out = append(out, tc)
	}
	return out
}

// finished reports whether every emitted tool call id has a matching
// result. The check is subset, not equality: extra or stale results
// never flip a response back to unfinished.
func finished(calls []llm.ToolCall, results []llm.ToolResult) bool {
	if len(calls) == 0 {
		return true
	}
	have := make(map[string]bool, len(results))
	for _, r := range results {
		have[r.ToolCallID] = true
	}
	for _, tc := range calls {
		if !have[tc.ID] {
			return false
		}
	}
	return true
}
