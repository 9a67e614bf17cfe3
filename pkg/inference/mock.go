package inference

import (
	"context"
	"strings"
	"sync"
)

// Mock is an in-memory Provider for tests. It answers from Answers by exact
// question, then falls back to Default. Err, when set, fails every call.
type Mock struct {
	Label   string
	Answers map[string]string
	Default string
	Err     error

	// GenerateFunc replaces the lookup entirely when set.
	GenerateFunc func(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	mu      sync.Mutex
	prompts []string
	closed  bool
}

// NewMock returns a mock that answers every question with text.
func NewMock(text string) *Mock {
	return &Mock{Default: text}
}

// WithError returns a mock whose Generate and Health both fail with err.
func WithError(err error) *Mock {
	return &Mock{Err: err}
}

// Name implements Named.
func (m *Mock) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return "mock"
}

func (m *Mock) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, WrapError(m.Name(), m.Err)
	}

	text, ok := m.Answers[req.Prompt]
	if !ok {
		text = m.Default
	}
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(m.Name(), ErrEmptyOutput)
	}
	return &GenerateResponse{Text: text, FinishReason: "stop", Model: m.Name()}, nil
}

func (m *Mock) Health(ctx context.Context) error {
	return WrapError(m.Name(), m.Err)
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Prompts returns every prompt passed to Generate, oldest first.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Provider = (*Mock)(nil)
