package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-ask/internal/httpc"
)

const providerHTTP = "http"

// Client generates answers through an OpenAI-compatible chat completions
// endpoint: OpenAI itself, Ollama, vLLM or any server speaking the same
// wire format.
type Client struct {
	endpoint string
	cfg      *Config
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates an HTTP provider.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:      cfg,
		http:     httpc.NewClient(cfg.Timeout),
		logger:   cfg.Logger.With("component", "inference.http", "model", cfg.Model),
	}, nil
}

// Name implements Named.
func (c *Client) Name() string { return providerHTTP }

// Generate sends the question as the user turn after the system prompt.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.payload(req))
	if err != nil {
		return nil, WrapError(providerHTTP, err)
	}

	var out chatCompletionResponse
	if err := c.call(ctx, http.MethodPost, "/chat/completions", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, WrapError(providerHTTP, ErrEmptyOutput)
	}

	choice := out.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, WrapError(providerHTTP, ErrEmptyOutput)
	}

	latency := time.Since(start).Milliseconds()
	c.logger.Debug("answer generated",
		"finish_reason", choice.FinishReason,
		"tokens", out.Usage.TotalTokens,
		"latency_ms", latency,
	)

	return &GenerateResponse{
		Text:         text,
		FinishReason: choice.FinishReason,
		Model:        out.Model,
		LatencyMs:    latency,
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

// Health lists models, which every compatible server exposes.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/models", nil, nil)
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) payload(req *GenerateRequest) chatCompletionRequest {
	p := chatCompletionRequest{
		Model:       firstNonEmpty(req.Model, c.cfg.Model),
		MaxTokens:   req.MaxLength,
		Temperature: req.Temperature,
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = c.cfg.MaxLength
	}
	if p.Temperature == 0 {
		p.Temperature = c.cfg.Temperature
	}
	if c.cfg.SystemPrompt != "" {
		p.Messages = append(p.Messages, chatMessage{Role: "system", Content: c.cfg.SystemPrompt})
	}
	p.Messages = append(p.Messages, chatMessage{Role: "user", Content: req.Prompt})
	return p
}

// call performs one request with retries and decodes a 200 reply into out.
// Transport failures and retryable API errors are retried with a linear
// backoff; anything else is returned at once.
func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying request", "path", path, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return WrapError(providerHTTP, ctx.Err())
			case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		lastErr = c.once(ctx, method, path, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return WrapError(providerHTTP, lastErr)
		}
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.IsRetryable() {
			return lastErr
		}
	}

	return WrapError(providerHTTP, lastErr)
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func apiError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	e := &APIError{
		Provider:   providerHTTP,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(raw)),
	}

	var body struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		e.Message = body.Error.Message
		e.Code = body.Error.Code
	}
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

var _ Provider = (*Client)(nil)
