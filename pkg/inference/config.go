package inference

import (
	"log/slog"
	"time"
)

// DefaultSystemPrompt frames the model as the robot's question answerer.
const DefaultSystemPrompt = "You are a friendly robot guide at a university faculty. " +
	"Answer the visitor's question in one or two short spoken sentences."

// Config is shared by every provider. The HTTP client uses all of it; the
// command provider only reads MaxLength and Logger.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string

	MaxLength   int
	Temperature float64

	Timeout    time.Duration // per HTTP attempt
	MaxRetries int
	RetryDelay time.Duration // grows linearly with each retry

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

// WithBaseURL points the HTTP provider at an OpenAI-compatible API root,
// e.g. "http://localhost:11434/v1".
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

// WithAPIKey sets the bearer token. Local servers usually need none.
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option { return func(c *Config) { c.SystemPrompt = prompt } }

// WithMaxLength bounds answers that do not set their own MaxLength.
func WithMaxLength(n int) Option { return func(c *Config) { c.MaxLength = n } }

func WithTemperature(t float64) Option { return func(c *Config) { c.Temperature = t } }

func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetry allows up to maxRetries extra attempts after a transport error
// or a retryable APIError.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// DefaultConfig returns defaults for a local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "http://localhost:11434/v1",
		Model:        "llama3.2",
		SystemPrompt: DefaultSystemPrompt,
		MaxLength:    100,
		Temperature:  0.7,
		Timeout:      60 * time.Second,
		MaxRetries:   2,
		RetryDelay:   250 * time.Millisecond,
		Logger:       slog.Default(),
	}
}

// Apply runs opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate reports the first missing setting the HTTP provider needs.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Model == "" {
		return ErrNoModel
	}
	return nil
}
