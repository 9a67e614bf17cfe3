// Package speech makes the robot say things.
//
// A Command is either Plain (speak the text) or Greeting (speak it with the
// animated greeting gesture). The actor decides how each variant is rendered.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alessio/shellescape"

	"github.com/teslashibe/go-ask/pkg/remote"
)

// Defaults for the robot-side speech program.
const (
	DefaultProgram = "python2 /home/nao/pepper_codes/bilozor/outloud.py"
	DefaultLocalIP = "localhost"
)

// ErrEmptyText is returned when asked to speak nothing.
var ErrEmptyText = errors.New("speech: empty text")

// Kind distinguishes speech variants.
type Kind int

const (
	KindPlain Kind = iota
	KindGreeting
)

func (k Kind) String() string {
	if k == KindGreeting {
		return "greeting"
	}
	return "plain"
}

// Command is a tagged speech request.
type Command struct {
	Kind Kind
	Text string
}

// Plain returns a plain speech command.
func Plain(text string) Command {
	return Command{Kind: KindPlain, Text: text}
}

// Greeting returns an animated greeting command.
func Greeting(text string) Command {
	return Command{Kind: KindGreeting, Text: text}
}

// Actor speaks commands.
type Actor interface {
	Speak(ctx context.Context, cmd Command) error
}

// RemoteActor runs the speech program on the robot over a remote executor.
type RemoteActor struct {
	exec    remote.Executor
	target  remote.Target
	program string
	localIP string
	logger  *slog.Logger
}

// RemoteOption configures a RemoteActor.
type RemoteOption func(*RemoteActor)

// WithProgram sets the command prefix that launches the speech program.
// It is passed to the remote shell unquoted.
func WithProgram(program string) RemoteOption {
	return func(a *RemoteActor) { a.program = program }
}

// WithLocalIP sets the address the speech program uses to reach the robot
// runtime from inside the robot.
func WithLocalIP(ip string) RemoteOption {
	return func(a *RemoteActor) { a.localIP = ip }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) RemoteOption {
	return func(a *RemoteActor) { a.logger = l }
}

// NewRemoteActor creates an actor that speaks on target.
func NewRemoteActor(exec remote.Executor, target remote.Target, opts ...RemoteOption) *RemoteActor {
	a := &RemoteActor{
		exec:    exec,
		target:  target,
		program: DefaultProgram,
		localIP: DefaultLocalIP,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "speech")
	return a
}

// Render builds the shell command line for cmd:
//
//	<program> --ip <addr> [--greeting] <text>
func (a *RemoteActor) Render(cmd Command) string {
	parts := []string{a.program, "--ip", shellescape.Quote(a.localIP)}
	if cmd.Kind == KindGreeting {
		parts = append(parts, "--greeting")
	}
	parts = append(parts, shellescape.Quote(cmd.Text))
	return strings.Join(parts, " ")
}

// Speak runs the rendered command and waits for it to finish.
func (a *RemoteActor) Speak(ctx context.Context, cmd Command) error {
	if strings.TrimSpace(cmd.Text) == "" {
		return ErrEmptyText
	}

	res, err := a.exec.Execute(ctx, a.target, a.Render(cmd))
	if err != nil {
		return fmt.Errorf("speech: %s: %w", cmd.Kind, err)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("speech: %s: %w", cmd.Kind, err)
	}

	a.logger.Debug("spoke", "kind", cmd.Kind.String(), "chars", len(cmd.Text))
	return nil
}

// Recorder is an Actor that remembers what it was asked to say.
type Recorder struct {
	// Err, when set, is returned from every Speak call.
	Err error

	mu       sync.Mutex
	commands []Command
}

// Speak records cmd.
func (r *Recorder) Speak(ctx context.Context, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return r.Err
}

// Commands returns a copy of recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

var (
	_ Actor = (*RemoteActor)(nil)
	_ Actor = (*Recorder)(nil)
)
