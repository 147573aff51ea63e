package transport

import (
	"context"
	"log"

	"llmbridge/internal/classify"
	"llmbridge/internal/llm"
)

// FallbackProvider tries providers in order, moving on when a failure
// classifies as retryable. The first provider is primary.
type FallbackProvider struct {
	providers  []Provider
	classifier *classify.Classifier
}

// NewFallbackProvider creates a provider chain.
func NewFallbackProvider(classifier *classify.Classifier, providers ...Provider) *FallbackProvider {
	return &FallbackProvider{providers: providers, classifier: classifier}
}

func (f *FallbackProvider) Name() string {
	if len(f.providers) > 0 {
		return f.providers[0].Name() + "+fallback"
	}
	return "fallback"
}

func (f *FallbackProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.RawResponse, error) {
	var lastErr error
	for _, p := range f.providers {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !f.classifier.Classify(err).Retryable() {
			return nil, err
		}
		log.Printf("[fallback] provider %s failed, trying next", p.Name())
	}
	return nil, lastErr
}

func (f *FallbackProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	var lastErr error
	for _, p := range f.providers {
		ch, err := p.StreamChat(ctx, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err
		if !f.classifier.Classify(err).Retryable() {
			return nil, err
		}
		log.Printf("[fallback] provider %s stream failed, trying next", p.Name())
	}
	return nil, lastErr
}
