package transport

import (
	"context"

	"llmbridge/internal/llm"
)

// Provider is the upstream transport collaborator. The normalization
// core treats it as opaque I/O: Chat hands back one complete payload,
// StreamChat a sequence of chunks. Implementations own all HTTP
// concerns (pooling, retries, compression) via their SDK clients.
type Provider interface {
	// Chat issues one complete request.
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.RawResponse, error)

	// StreamChat issues a streaming request. The returned channel is
	// closed when the upstream stream ends; nil chunks may appear and
	// are skipped by the aggregator.
	StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error)

	// Name returns the provider id (e.g. "openai", "anthropic").
	Name() string
}
