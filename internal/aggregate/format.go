package aggregate

import (
	"fmt"
	"strings"

	"llmbridge/internal/llm"
)

// Format renders an aggregated response as user-facing text, weaving in
// tool results according to the selected style. Synthesized text (the
// results lead-in, the all-errors failure summary) only ever replaces an
// empty base; real model content always survives formatting.
func Format(resp *llm.AggregatedResponse, style ToolResultStyle) string {
	base := resp.Content
	if base == llm.EmptyContentFallback {
		base = ""
	}
	results := resp.ToolResults

	if base == "" {
		if len(results) == 0 {
			return llm.EmptyContentFallback
		}
		if allErrors(results) {
			return failureSummary(results)
		}
		return resultsLeadIn(results)
	}

	if len(results) == 0 {
		return base
	}

	switch style {
	case StyleAppended:
		var b strings.Builder
		b.WriteString(base)
		b.WriteString(appendedDelimiter)
		for _, r := range results {
			b.WriteString(fmt.Sprintf("%s: %s\n", resultName(r), r.Content))
		}
		return strings.TrimRight(b.String(), "\n")
	case StyleSeparate:
		return base
	default: // StyleIntegrated
		var b strings.Builder
		b.WriteString(base)
		for _, r := range results {
			if r.IsError {
				continue
			}
			b.WriteString(fmt.Sprintf(" Using %s: %s.", resultName(r), r.Content))
		}
		return b.String()
	}
}

// resultsLeadIn synthesizes content when the model produced none but
// tools did.
func resultsLeadIn(results []llm.ToolResult) string {
	var parts []string
	for _, r := range results {
		if r.IsError {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", resultName(r), r.Content))
	}
	return "Here are the results: " + strings.Join(parts, "; ")
}

// failureSummary makes an all-errors outcome explicit instead of
// returning nothing.
func failureSummary(results []llm.ToolResult) string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, resultName(r))
	}
	return fmt.Sprintf("All tool executions failed (%s). I couldn't complete the request.",
		strings.Join(names, ", "))
}

func allErrors(results []llm.ToolResult) bool {
	for _, r := range results {
		if !r.IsError {
			return false
		}
	}
	return len(results) > 0
}

func resultName(r llm.ToolResult) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ToolCallID
}
