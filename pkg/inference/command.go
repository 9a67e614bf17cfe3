package inference

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

const providerCommand = "command"

// Placeholders substituted into command arguments.
const (
	PlaceholderQuestion  = "{question}"
	PlaceholderMaxLength = "{max_length}"
)

// Command runs a local generation program, such as a fine-tuned seq2seq
// script, once per request and reads the answer from its stdout.
//
// The command line is split with shell rules. Arguments may contain
// {question} and {max_length}; when no argument mentions {question} the
// question is appended as the final argument.
type Command struct {
	args      []string
	maxLength int
	logger    *slog.Logger
}

// NewCommand creates a command provider from a command line.
func NewCommand(commandLine string, opts ...Option) (*Command, error) {
	args, err := shlex.Split(commandLine)
	if err != nil {
		return nil, WrapError(providerCommand, fmt.Errorf("parse command: %w", err))
	}
	if len(args) == 0 {
		return nil, ErrNoCommand
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Command{
		args:      args,
		maxLength: cfg.MaxLength,
		logger:    cfg.Logger.With("component", "inference.command"),
	}, nil
}

// Name implements Named.
func (c *Command) Name() string { return providerCommand }

// Generate runs the program and returns its trimmed stdout.
func (c *Command) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	maxLength := req.MaxLength
	if maxLength == 0 {
		maxLength = c.maxLength
	}

	args := c.render(req.Prompt, maxLength)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, WrapError(providerCommand, ctx.Err())
		}
		return nil, WrapError(providerCommand, fmt.Errorf("%s: %w: %s",
			args[0], err, strings.TrimSpace(stderr.String())))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, WrapError(providerCommand, ErrEmptyOutput)
	}

	c.logger.Debug("generated", "program", args[0], "latency_ms", time.Since(start).Milliseconds())

	return &GenerateResponse{
		Text:         text,
		FinishReason: "stop",
		Model:        args[0],
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// render substitutes placeholders into a copy of the argument list.
func (c *Command) render(question string, maxLength int) []string {
	out := make([]string, 0, len(c.args)+1)
	hasQuestion := false
	for _, a := range c.args {
		if strings.Contains(a, PlaceholderQuestion) {
			hasQuestion = true
			a = strings.ReplaceAll(a, PlaceholderQuestion, question)
		}
		a = strings.ReplaceAll(a, PlaceholderMaxLength, strconv.Itoa(maxLength))
		out = append(out, a)
	}
	if !hasQuestion {
		out = append(out, question)
	}
	return out
}

// Health checks that the program can be found.
func (c *Command) Health(ctx context.Context) error {
	if _, err := exec.LookPath(c.args[0]); err != nil {
		return WrapError(providerCommand, err)
	}
	return nil
}

// Close is a no-op.
func (c *Command) Close() error {
	return nil
}

// Verify Command implements Provider at compile time.
var _ Provider = (*Command)(nil)
