// Package inference provides the generative fallback used when the knowledge
// base has no confident answer.
//
// Providers sit behind a single Provider interface so an OpenAI-compatible
// HTTP endpoint, a local seq2seq script, or a chain of both can be swapped
// without touching the resolution engine.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithBaseURL("http://localhost:11434/v1"),
//	    inference.WithModel("llama3.2"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Generate(ctx, &inference.GenerateRequest{
//	    Prompt:    "What is the faculty known for?",
//	    MaxLength: 100,
//	})
package inference

import (
	"context"
	"strings"
)

// Provider is the generation interface implemented by every backend.
type Provider interface {
	// Generate produces a free-form answer for the prompt.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// GenerateRequest for a single answer.
type GenerateRequest struct {
	// Prompt is the user's question.
	Prompt string

	// MaxLength bounds the generated answer in tokens. Zero uses the
	// provider default.
	MaxLength int

	// Model overrides the default model.
	Model string

	// Temperature controls randomness (0.0-2.0).
	Temperature float64
}

// GenerateResponse from a provider.
type GenerateResponse struct {
	// Text is the generated answer, trimmed of surrounding whitespace.
	Text string

	// FinishReason indicates why generation stopped (stop, length).
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TextGenerator adapts a Provider to the plain string signature used by the
// resolution engine.
type TextGenerator struct {
	provider Provider
}

// NewTextGenerator wraps p.
func NewTextGenerator(p Provider) *TextGenerator {
	return &TextGenerator{provider: p}
}

// Generate returns the answer text for question.
func (g *TextGenerator) Generate(ctx context.Context, question string, maxLength int) (string, error) {
	resp, err := g.provider.Generate(ctx, &GenerateRequest{
		Prompt:    question,
		MaxLength: maxLength,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// Provider returns the wrapped provider.
func (g *TextGenerator) Provider() Provider {
	return g.provider
}
