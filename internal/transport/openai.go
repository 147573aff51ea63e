package transport

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"llmbridge/internal/auth"
	"llmbridge/internal/convert"
	"llmbridge/internal/llm"
)

// OpenAIProvider adapts the OpenAI API (and compatible endpoints such
// as OpenRouter or local runtimes) to the canonical shapes.
type OpenAIProvider struct {
	client       openai.Client
	converter    *convert.Converter
	name         string
	defaultModel string
}

// NewOpenAIProvider creates an OpenAI-compatible transport adapter
// using resolved credentials. A non-empty baseURL points the client at
// a compatible endpoint.
func NewOpenAIProvider(creds *auth.Credentials, conv *convert.Converter, name, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(creds.Key),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if name == "" {
		name = "openai"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client:       openai.NewClient(opts...),
		converter:    conv,
		name:         name,
		defaultModel: model,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) params(req *llm.ChatRequest) (openai.ChatCompletionNewParams, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := p.converter.OpenAIMessages(req.Messages)
	if req.SystemPrompt != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
		}, messages...)
	}
	tools, err := p.converter.OpenAITools(req.Tools)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func (p *OpenAIProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.RawResponse, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	raw := &llm.RawResponse{
		Usage: &llm.UsageStats{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
		Metadata: map[string]any{"model": resp.Model, "id": resp.ID},
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		raw.Text = choice.Message.Content
		raw.FinishReason = string(choice.FinishReason)
		for _, tc := range choice.Message.ToolCalls {
			raw.ToolCalls = append(raw.ToolCalls, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	}
	return raw, nil
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan *llm.StreamChunk, 64)

	go func() {
		defer close(ch)

		// Tool call deltas arrive fragmented by index; arguments are
		// accumulated here and emitted once the stream finishes.
		type partialCall struct {
			id   string
			name string
			args strings.Builder
		}
		partials := make(map[int64]*partialCall)
		var order []int64

		for stream.Next() {
			chunk := stream.Current()
			out := &llm.StreamChunk{}
			if len(chunk.Choices) > 0 {
				delta := chunk.Choices[0].Delta
				out.Content = delta.Content
				for _, tc := range delta.ToolCalls {
					pc, ok := partials[tc.Index]
					if !ok {
						pc = &partialCall{}
						partials[tc.Index] = pc
						order = append(order, tc.Index)
					}
					if tc.ID != "" {
						pc.id = tc.ID
					}
					if tc.Function.Name != "" {
						pc.name = tc.Function.Name
					}
					pc.args.WriteString(tc.Function.Arguments)
				}
				out.FinishReason = string(chunk.Choices[0].FinishReason)
			}
			if chunk.Usage.TotalTokens > 0 {
				out.Usage = &llm.UsageStats{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
				}
			}
			if out.FinishReason != "" && len(order) > 0 {
				for _, idx := range order {
					pc := partials[idx]
					out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
						ID:        pc.id,
						Name:      pc.name,
						Arguments: json.RawMessage(pc.args.String()),
					})
				}
			}
			ch <- out
		}
		if err := stream.Err(); err != nil {
			ch <- &llm.StreamChunk{FinishReason: "error", Err: err}
		}
	}()

	return ch, nil
}
