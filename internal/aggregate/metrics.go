package aggregate

import (
	"time"

	"llmbridge/internal/llm"
)

// Metrics is derived from a completed aggregated response.
type Metrics struct {
	ProcessingTime   time.Duration `json:"processing_time"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	ToolsExecuted    int           `json:"tools_executed"`
	ToolsSuccessful  int           `json:"tools_successful"`
	ToolsFailed      int           `json:"tools_failed"`
	ToolSuccessRate  float64       `json:"tool_success_rate"`
}

// ExtractMetrics derives processing time, token counts and tool
// statistics from an aggregated response. The success rate is 0.0 when
// no tools executed; the division is never attempted.
func ExtractMetrics(resp *llm.AggregatedResponse) Metrics {
	m := Metrics{}

	if startedAt, ok := resp.Metadata["started_at"].(time.Time); ok {
		if completedAt, ok := resp.Metadata["completed_at"].(time.Time); ok {
			m.ProcessingTime = completedAt.Sub(startedAt)
		}
	}

	if resp.Usage != nil {
		m.PromptTokens = resp.Usage.PromptTokens
		m.CompletionTokens = resp.Usage.CompletionTokens
		m.TotalTokens = resp.Usage.TotalTokens
	}

	m.ToolsExecuted = len(resp.ToolResults)
	for _, r := range resp.ToolResults {
		if r.IsError {
			m.ToolsFailed++
		} else {
			m.ToolsSuccessful++
		}
	}
	if m.ToolsExecuted > 0 {
		m.ToolSuccessRate = float64(m.ToolsSuccessful) / float64(m.ToolsExecuted) * 100
	}
	return m
}
