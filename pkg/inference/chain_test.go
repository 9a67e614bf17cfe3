package inference

import (
	"context"
	"errors"
	"testing"
)

func TestChainFallsBackToNextProvider(t *testing.T) {
	local := WithError(errors.New("model not loaded"))
	local.Label = "seq2seq"
	hosted := NewMock("The library opens at eight.")
	hosted.Label = "hosted"

	chain, err := NewChain(local, hosted)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	resp, err := chain.Generate(context.Background(), &GenerateRequest{Prompt: "When does the library open?"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "The library opens at eight." {
		t.Errorf("Text = %q", resp.Text)
	}
	if got := local.Prompts(); len(got) != 1 || got[0] != "When does the library open?" {
		t.Errorf("local prompts = %v", got)
	}
}

func TestChainReportsEveryAttempt(t *testing.T) {
	first := WithError(errors.New("timeout"))
	first.Label = "first"
	second := &Mock{Label: "second"}

	chain, _ := NewChain(first, second)

	_, err := chain.Generate(context.Background(), &GenerateRequest{Prompt: "anything"})

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %T: %v", err, err)
	}
	if len(chainErr.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(chainErr.Attempts))
	}
	if chainErr.Attempts[0].Provider != "first" || chainErr.Attempts[1].Provider != "second" {
		t.Errorf("attempts = %+v", chainErr.Attempts)
	}
	if !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("expected ErrEmptyOutput to be reachable, got %v", err)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &Mock{
		GenerateFunc: func(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
			cancel()
			return nil, errors.New("interrupted")
		},
	}
	second := NewMock("never")

	chain, _ := NewChain(first, second)

	_, err := chain.Generate(ctx, &GenerateRequest{Prompt: "test"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(second.Prompts()) != 0 {
		t.Error("second provider should not be asked after cancellation")
	}
}

func TestChainEmpty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestChainHealth(t *testing.T) {
	ctx := context.Background()
	down := errors.New("down")

	chain, _ := NewChain(WithError(down), NewMock("ok"))
	if err := chain.Health(ctx); err != nil {
		t.Errorf("expected healthy chain, got %v", err)
	}

	allDown, _ := NewChain(WithError(down))
	if err := allDown.Health(ctx); !errors.Is(err, down) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestChainCloseClosesEveryProvider(t *testing.T) {
	a, b := NewMock("a"), NewMock("b")
	chain, _ := NewChain(a, b)

	if err := chain.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.Closed() || !b.Closed() {
		t.Error("expected both providers closed")
	}
}

func TestMockAnswersByQuestion(t *testing.T) {
	m := &Mock{
		Answers: map[string]string{"Who is the dean?": "Professor Ilić."},
		Default: "I am not sure.",
	}

	resp, err := m.Generate(context.Background(), &GenerateRequest{Prompt: "Who is the dean?"})
	if err != nil || resp.Text != "Professor Ilić." {
		t.Errorf("known question: %v, %v", resp, err)
	}
	resp, err = m.Generate(context.Background(), &GenerateRequest{Prompt: "Where is room 12?"})
	if err != nil || resp.Text != "I am not sure." {
		t.Errorf("unknown question: %v, %v", resp, err)
	}
}

func TestTextGenerator(t *testing.T) {
	mock := NewMock("  The faculty was founded in 1969.  ")
	gen := NewTextGenerator(mock)

	text, err := gen.Generate(context.Background(), "When?", 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "The faculty was founded in 1969." {
		t.Errorf("expected trimmed text, got %q", text)
	}
	if got := mock.Prompts(); len(got) != 1 || got[0] != "When?" {
		t.Errorf("prompts = %v", got)
	}
}
