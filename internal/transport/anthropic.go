package transport

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"llmbridge/internal/auth"
	"llmbridge/internal/convert"
	"llmbridge/internal/llm"
)

// AnthropicProvider adapts the Anthropic API to the canonical
// request/response shapes.
type AnthropicProvider struct {
	client       anthropic.Client
	converter    *convert.Converter
	defaultModel string
}

// NewAnthropicProvider creates an Anthropic transport adapter using
// resolved credentials.
func NewAnthropicProvider(creds *auth.Credentials, conv *convert.Converter, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(option.WithAPIKey(creds.Key)),
		converter:    conv,
		defaultModel: model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) params(req *llm.ChatRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, system := p.converter.AnthropicMessages(req.Messages)
	tools, err := p.converter.AnthropicTools(req.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		system = append([]anthropic.TextBlockParam{{Text: req.SystemPrompt}}, system...)
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.RawResponse, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	raw := &llm.RawResponse{
		FinishReason: string(resp.StopReason),
		Usage: &llm.UsageStats{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
		Metadata: map[string]any{"model": string(resp.Model), "id": resp.ID},
	}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			raw.Parts = append(raw.Parts, llm.ContentPart{Type: llm.PartText, Text: b.Text})
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(b.Input)
			raw.ToolCalls = append(raw.ToolCalls, llm.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}
	return raw, nil
}

func (p *AnthropicProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	ch := make(chan *llm.StreamChunk, 64)

	go func() {
		defer close(ch)
		for stream.Next() {
			event := stream.Current()
			switch e := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if e.Delta.Type == "text_delta" {
					ch <- &llm.StreamChunk{Content: e.Delta.Text}
				}
			case anthropic.MessageDeltaEvent:
				chunk := &llm.StreamChunk{
					FinishReason: string(e.Delta.StopReason),
				}
				if e.Usage.OutputTokens > 0 {
					chunk.Usage = &llm.UsageStats{CompletionTokens: int(e.Usage.OutputTokens)}
				}
				ch <- chunk
			}
		}
		if err := stream.Err(); err != nil {
			ch <- &llm.StreamChunk{FinishReason: "error", Err: err}
		}
	}()

	return ch, nil
}
