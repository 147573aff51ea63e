package transport

import (
	"context"
	"errors"
	"testing"

	"llmbridge/internal/auth"
	"llmbridge/internal/classify"
	"llmbridge/internal/config"
	"llmbridge/internal/convert"
	"llmbridge/internal/llm"
	"llmbridge/internal/security"
)

type stubProvider struct {
	name string
	resp *llm.RawResponse
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Chat(context.Context, *llm.ChatRequest) (*llm.RawResponse, error) {
	return s.resp, s.err
}

func (s *stubProvider) StreamChat(context.Context, *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *llm.StreamChunk)
	close(ch)
	return ch, nil
}

func TestFallbackOnRetryableError(t *testing.T) {
	classifier := classify.NewClassifier(security.NewSanitizer(), nil)
	primary := &stubProvider{name: "primary", err: errors.New("connection refused")}
	secondary := &stubProvider{name: "secondary", resp: &llm.RawResponse{Text: "ok"}}

	f := NewFallbackProvider(classifier, primary, secondary)

	resp, err := f.Chat(context.Background(), &llm.ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "ok" {
		t.Fatalf("expected secondary response, got %q", resp.Text)
	}
}

func TestNoFallbackOnPermanentError(t *testing.T) {
	classifier := classify.NewClassifier(security.NewSanitizer(), nil)
	primary := &stubProvider{name: "primary", err: errors.New("parameter validation failed")}
	secondary := &stubProvider{name: "secondary", resp: &llm.RawResponse{Text: "ok"}}

	f := NewFallbackProvider(classifier, primary, secondary)

	if _, err := f.Chat(context.Background(), &llm.ChatRequest{}); err == nil {
		t.Fatal("permanent failures must not fall through to the next provider")
	}
}

func TestFallbackAllFail(t *testing.T) {
	classifier := classify.NewClassifier(security.NewSanitizer(), nil)
	primary := &stubProvider{name: "primary", err: errors.New("network unreachable")}
	secondary := &stubProvider{name: "secondary", err: errors.New("service unavailable")}

	f := NewFallbackProvider(classifier, primary, secondary)

	if _, err := f.Chat(context.Background(), &llm.ChatRequest{}); err == nil {
		t.Fatal("expected the last error when every provider fails")
	}
}

func TestFactoryRouting(t *testing.T) {
	creds := &auth.Credentials{Key: "sk-test"}
	tests := []struct {
		providerID string
		endpoint   string
		wantErr    bool
	}{
		{"openai", "", false},
		{"anthropic", "", false},
		{"openrouter", "https://openrouter.ai/api/v1", false},
		{"acme", "https://api.acme.dev/v1", false},
		{"ghost", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.providerID, func(t *testing.T) {
			p, err := NewProvider(tt.providerID, creds, convert.New(nil), config.ProviderConfig{Endpoint: tt.endpoint})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for provider without adapter or endpoint")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() == "" {
				t.Fatal("adapter must report a name")
			}
		})
	}
}
