package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Named is implemented by providers that report a short name for logs and
// chain errors.
type Named interface {
	Name() string
}

// ProviderName returns p's name, or its type when it has none.
func ProviderName(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

// Chain asks each provider in turn and returns the first answer. A typical
// chain puts a local seq2seq command ahead of a hosted endpoint.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger creates a provider chain that logs fallbacks to logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "inference.chain"),
	}, nil
}

// Name implements Named.
func (c *Chain) Name() string { return "chain" }

// Generate returns the first provider's answer. It stops early when ctx is
// done, since later providers would share the same deadline.
func (c *Chain) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	failed := &ChainError{}

	for _, p := range c.providers {
		name := ProviderName(p)
		start := time.Now()

		resp, err := p.Generate(ctx, req)
		if err == nil {
			if len(failed.Attempts) > 0 {
				c.logger.Info("answered by fallback provider",
					"provider", name,
					"skipped", len(failed.Attempts),
				)
			}
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		failed.Attempts = append(failed.Attempts, Attempt{Provider: name, Err: err})
		c.logger.Warn("provider gave no answer",
			"provider", name,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	}

	return nil, failed
}

// Health succeeds when at least one provider is reachable.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", ProviderName(p), err))
	}
	return WrapError(c.Name(), errors.Join(errs...))
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the providers in the order they are asked.
func (c *Chain) Providers() []Provider {
	return c.providers
}

var _ Provider = (*Chain)(nil)
