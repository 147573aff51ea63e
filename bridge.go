// Package llmbridge presents one consistent interface over
// heterogeneous LLM providers: it resolves credentials, converts
// requests into provider wire formats, and normalizes responses and
// failures back into canonical shapes.
package llmbridge

import (
	"context"
	"time"

	"llmbridge/internal/aggregate"
	"llmbridge/internal/auth"
	"llmbridge/internal/classify"
	"llmbridge/internal/config"
	"llmbridge/internal/convert"
	"llmbridge/internal/eventbus"
	"llmbridge/internal/llm"
	"llmbridge/internal/security"
	"llmbridge/internal/tool"
	"llmbridge/internal/transport"
)

// Re-exported core types. The internal packages own the definitions;
// these aliases are the public data contract.
type (
	Role               = llm.Role
	ContentPart        = llm.ContentPart
	Message            = llm.Message
	ChatRequest        = llm.ChatRequest
	ToolDefinition     = llm.ToolDefinition
	ToolCall           = llm.ToolCall
	ToolResult         = llm.ToolResult
	UsageStats         = llm.UsageStats
	StreamChunk        = llm.StreamChunk
	RawResponse        = llm.RawResponse
	AggregatedResponse = llm.AggregatedResponse
	NormalizedError    = classify.NormalizedError
	Credentials        = auth.Credentials
	RequestOptions     = auth.RequestOptions
	ToolResultStyle    = aggregate.ToolResultStyle
	Metrics            = aggregate.Metrics
	ToolRegistry       = tool.Registry
)

const (
	StyleIntegrated = aggregate.StyleIntegrated
	StyleAppended   = aggregate.StyleAppended
	StyleSeparate   = aggregate.StyleSeparate
)

// Bridge orchestrates the normalization core for one execution context.
// Each Bridge owns its own session credential store, so values set here
// are invisible to every other Bridge instance.
type Bridge struct {
	cfg        *config.Config
	session    *auth.Session
	resolver   *auth.Resolver
	converter  *convert.Converter
	aggregator *aggregate.Aggregator
	classifier *classify.Classifier
	bus        *eventbus.Bus
	style      aggregate.ToolResultStyle
}

// New creates a bridge over the given config and credential store. A
// nil store disables the environment and stored-default tiers' stored
// half; a nil config uses defaults.
func New(cfg *config.Config, store auth.ConfigStore) *Bridge {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if store == nil {
		store = config.NewStore(nil)
	}

	bus := eventbus.New()
	san := security.NewSanitizer(cfg.Sanitizer.ExtraSensitiveFields...)

	registry := auth.NewRegistry()
	for id, pc := range cfg.Providers {
		if pc.GenericAuth != nil {
			registry.RegisterGeneric(id, *pc.GenericAuth)
		}
	}

	style := aggregate.ToolResultStyle(cfg.Aggregation.ToolResultStyle)
	if style == "" {
		style = aggregate.StyleIntegrated
	}

	return &Bridge{
		cfg:        cfg,
		session:    auth.NewSession(),
		resolver:   auth.NewResolver(registry, store, san, bus),
		converter:  convert.New(bus),
		aggregator: aggregate.New(bus),
		classifier: classify.NewClassifier(san, bus),
		bus:        bus,
		style:      style,
	}
}

// Bus exposes the diagnostics event bus for subscribers.
func (b *Bridge) Bus() *eventbus.Bus { return b.bus }

// SetSessionValue stores a session-scoped credential for a provider,
// the highest resolution precedence tier.
func (b *Bridge) SetSessionValue(providerID, key string) {
	b.session.Set(providerID, key)
}

// ClearSessionValue removes one provider's session credential.
func (b *Bridge) ClearSessionValue(providerID string) {
	b.session.Clear(providerID)
}

// ClearSession removes every credential in this bridge's session.
func (b *Bridge) ClearSession() {
	b.session.ClearAll()
}

// AuthenticateForProvider resolves a credential through the precedence
// chain and synthesizes the provider's auth headers. Failures are
// classified before they surface.
func (b *Bridge) AuthenticateForProvider(providerID string, opts RequestOptions) (*Credentials, error) {
	creds, err := b.resolver.Resolve(b.session, providerID, opts)
	if err != nil {
		return nil, b.classifier.Classify(err)
	}
	return creds, nil
}

// ConvertTools translates internal tool definitions into the target
// provider's schema. Conversion failures surface as classified
// tool_conversion_error values, never as silent degradation.
func (b *Bridge) ConvertTools(providerID string, defs []ToolDefinition) (any, error) {
	var (
		out any
		err error
	)
	switch providerID {
	case "anthropic":
		out, err = b.converter.AnthropicTools(defs)
	default:
		out, err = b.converter.OpenAITools(defs)
	}
	if err != nil {
		return nil, b.classifier.Classify(err)
	}
	return out, nil
}

// AggregateResponse merges one complete provider payload with tool
// results into the canonical response.
func (b *Bridge) AggregateResponse(raw *RawResponse, results []ToolResult, startedAt time.Time) *AggregatedResponse {
	return b.aggregator.Complete(raw, results, startedAt)
}

// AggregateStreamingResponse consumes a chunk stream to completion (or
// cancellation) and returns the canonical response. On cancellation the
// partial response accumulated so far is returned, never discarded. An
// upstream stream failure is returned alongside the partial response,
// classified and sanitized.
func (b *Bridge) AggregateStreamingResponse(ctx context.Context, chunks <-chan *StreamChunk, results []ToolResult, startedAt time.Time) (*AggregatedResponse, error) {
	resp, err := b.aggregator.Stream(ctx, chunks, results, startedAt)
	if err != nil {
		return resp, b.classifier.Classify(err)
	}
	return resp, nil
}

// MapError normalizes any upstream failure value. The result is always
// sanitized.
func (b *Bridge) MapError(raw any) *NormalizedError {
	return b.classifier.Classify(raw)
}

// FormatForUser renders an aggregated response as user-facing text. An
// empty style uses the configured default.
func (b *Bridge) FormatForUser(resp *AggregatedResponse, style ToolResultStyle) string {
	if style == "" {
		style = b.style
	}
	return aggregate.Format(resp, style)
}

// ExtractMetrics derives timing, token and tool statistics from a
// completed response.
func (b *Bridge) ExtractMetrics(resp *AggregatedResponse) Metrics {
	return aggregate.ExtractMetrics(resp)
}

// ExecuteToolCalls runs each emitted tool call against the registry and
// returns results ready for aggregation. Failures are standardized
// tool-error payloads, never raw error text.
func (b *Bridge) ExecuteToolCalls(ctx context.Context, reg *ToolRegistry, calls []ToolCall) []ToolResult {
	return reg.Run(ctx, b.classifier, calls)
}

// Invoke runs the full pipeline for one non-streaming request: resolve
// auth, build the transport adapter, invoke it, then aggregate the
// payload or classify the failure.
func (b *Bridge) Invoke(ctx context.Context, providerID string, req *ChatRequest, opts RequestOptions) (*AggregatedResponse, error) {
	startedAt := time.Now()

	provider, err := b.provider(providerID, opts)
	if err != nil {
		return nil, err
	}

	raw, err := provider.Chat(ctx, req)
	if err != nil {
		return nil, b.classifier.Classify(err)
	}
	return b.aggregator.Complete(raw, nil, startedAt), nil
}

// InvokeStream runs the full pipeline for one streaming request. The
// stream is consumed to completion or cancellation.
func (b *Bridge) InvokeStream(ctx context.Context, providerID string, req *ChatRequest, opts RequestOptions) (*AggregatedResponse, error) {
	startedAt := time.Now()

	provider, err := b.provider(providerID, opts)
	if err != nil {
		return nil, err
	}

	chunks, err := provider.StreamChat(ctx, req)
	if err != nil {
		return nil, b.classifier.Classify(err)
	}
	resp, streamErr := b.aggregator.Stream(ctx, chunks, nil, startedAt)
	if streamErr != nil {
		return resp, b.classifier.Classify(streamErr)
	}
	return resp, nil
}

func (b *Bridge) provider(providerID string, opts RequestOptions) (transport.Provider, error) {
	creds, err := b.resolver.Resolve(b.session, providerID, opts)
	if err != nil {
		return nil, b.classifier.Classify(err)
	}
	provider, err := transport.NewProvider(providerID, creds, b.converter, b.cfg.Providers[providerID])
	if err != nil {
		return nil, b.classifier.Classify(err)
	}
	return provider, nil
}
