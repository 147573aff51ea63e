package llm

import "encoding/json"

// Role identifies the author of a message. Roles are carried through
// conversion verbatim; providers that use different vocabularies map
// them at their own boundary.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType tags a ContentPart variant.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// ContentPart is one element of a multi-part message body. Only text
// parts contribute to aggregated textual content.
type ContentPart struct {
	Type      PartType `json:"type"`
	Text      string   `json:"text,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
	Data      string   `json:"data,omitempty"`
}

// Message represents a chat message. When Parts is non-nil it takes
// precedence over Content.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// ChatRequest is the input for a chat completion.
type ChatRequest struct {
	Model        string           `json:"model"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	ToolChoice   string           `json:"tool_choice,omitempty"`
	MaxTokens    int              `json:"max_tokens"`
	Temperature  float64          `json:"temperature"`
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// ToolDefinition describes a tool available to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ToolCall represents a model request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing one tool call. ToolCallID must
// reference an emitted ToolCall for the pairing to count toward the
// finished status of a response.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// UsageStats tracks token consumption. TotalTokens is always recomputed
// as prompt + completion at merge time, never trusted from upstream.
type UsageStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add merges another usage record field-wise and recomputes the total.
func (u *UsageStats) Add(other UsageStats) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
}

// StreamChunk is one delta of a streaming response. Chunks are consumed
// by the aggregator in arrival order and discarded.
type StreamChunk struct {
	Content      string        `json:"content,omitempty"`
	Parts        []ContentPart `json:"parts,omitempty"`
	Role         Role          `json:"role,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *UsageStats   `json:"usage,omitempty"`

	// Err carries an upstream stream failure. Producers set it on the
	// final chunk alongside the "error" finish reason.
	Err error `json:"-"`
}

// RawResponse is a complete provider payload as handed over by the
// transport collaborator. Parts takes precedence over Text when non-nil.
type RawResponse struct {
	Text         string         `json:"text,omitempty"`
	Parts        []ContentPart  `json:"parts,omitempty"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        *UsageStats    `json:"usage,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AggregatedResponse is the canonical response shape. It is created
// fresh per request, mutated only during aggregation, and immutable
// once returned to the caller.
type AggregatedResponse struct {
	Content      string         `json:"content"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	ToolResults  []ToolResult   `json:"tool_results,omitempty"`
	Usage        *UsageStats    `json:"usage,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Finished     bool           `json:"finished"`
}

// ResponseType classifies an aggregated response by what it carries.
type ResponseType string

const (
	ResponseContentOnly      ResponseType = "content_only"
	ResponseToolsOnly        ResponseType = "tools_only"
	ResponseContentWithTools ResponseType = "content_with_tools"
	ResponseEmpty            ResponseType = "empty"
)

// Type reports the response classification. It is a pure function of
// presence: the fallback placeholder inserted for empty content does
// not count as content.
func (r *AggregatedResponse) Type() ResponseType {
	hasContent := r.Content != "" && r.Content != EmptyContentFallback
	hasTools := len(r.ToolCalls) > 0
	switch {
	case hasContent && hasTools:
		return ResponseContentWithTools
	case hasContent:
		return ResponseContentOnly
	case hasTools:
		return ResponseToolsOnly
	default:
		return ResponseEmpty
	}
}

// EmptyContentFallback is substituted when a response carries neither
// text nor tool calls, so downstream consumers never see an ambiguous
// empty answer.
const EmptyContentFallback = "I don't have any response to provide."
