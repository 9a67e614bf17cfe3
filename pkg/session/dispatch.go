package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/teslashibe/go-ask/pkg/remote"
	"github.com/teslashibe/go-ask/pkg/resolve"
)

// Dispatcher resolves an utterance into an answer.
type Dispatcher interface {
	Dispatch(ctx context.Context, u Utterance) (Answer, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, u Utterance) (Answer, error)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, u Utterance) (Answer, error) {
	return f(ctx, u)
}

// RemoteDispatcher runs the answer program on the compute node.
type RemoteDispatcher struct {
	exec    remote.Executor
	compute remote.Target
	robotIP string
	command string
	speak   bool
}

// NewRemoteDispatcher builds a dispatcher from the session config.
func NewRemoteDispatcher(exec remote.Executor, cfg Config) *RemoteDispatcher {
	return &RemoteDispatcher{
		exec:    exec,
		compute: cfg.Compute,
		robotIP: cfg.Robot.Host,
		command: cfg.AnswerCommand,
		speak:   cfg.ComputeSpeaks,
	}
}

// Render builds the compute-node command line for question.
func (d *RemoteDispatcher) Render(question string) string {
	parts := []string{d.command, "--output", "json"}
	if d.robotIP != "" {
		parts = append(parts, "--robot-ip", shellescape.Quote(d.robotIP))
	}
	if d.speak {
		parts = append(parts, "--speak")
	}
	parts = append(parts, "--", shellescape.Quote(question))
	return strings.Join(parts, " ")
}

// Dispatch runs the command and parses its output.
func (d *RemoteDispatcher) Dispatch(ctx context.Context, u Utterance) (Answer, error) {
	res, err := d.exec.Execute(ctx, d.compute, d.Render(u.Text))
	if err != nil {
		return Answer{}, err
	}
	if err := res.Err(); err != nil {
		return Answer{}, err
	}
	return ParseAnswer(res.Stdout)
}

// ParseAnswer reads the answer program's stdout. The last line that decodes
// as a JSON answer wins; otherwise the whole trimmed output is the answer.
func ParseAnswer(stdout string) (Answer, error) {
	out := strings.TrimSpace(stdout)
	if out == "" {
		return Answer{}, ErrEmptyResponse
	}

	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var a Answer
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			continue
		}
		a.Text = strings.TrimSpace(a.Text)
		if a.Text == "" {
			return a, ErrEmptyResponse
		}
		return a, nil
	}

	return Answer{Text: out}, nil
}

// AnswerFromResult converts an engine result into the wire answer printed by
// the answer program.
func AnswerFromResult(r resolve.Result) Answer {
	return Answer{
		Text:   r.Text,
		Score:  r.Score,
		Origin: r.Origin.String(),
		Tier:   r.Decision.String(),
	}
}
