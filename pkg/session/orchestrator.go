package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-ask/pkg/capture"
	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/remote"
	"github.com/teslashibe/go-ask/pkg/speech"
)

// Observer is notified of state changes and finished turns. Calls are made
// synchronously from the loop, so implementations must not block.
type Observer interface {
	OnState(s Snapshot)
	OnTurn(t Turn)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Capturer   capture.Capturer
	Dispatcher Dispatcher
	Actor      speech.Actor
}

// Orchestrator drives one session.
type Orchestrator struct {
	config     Config
	capturer   capture.Capturer
	dispatcher Dispatcher
	actor      speech.Actor

	observers  []Observer
	interrupts <-chan struct{}
	console    io.Writer
	logger     *slog.Logger

	state State
	turns int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithInterrupts sets the channel that delivers user interrupts (Ctrl+C).
func WithInterrupts(ch <-chan struct{}) Option {
	return func(o *Orchestrator) { o.interrupts = ch }
}

// WithConsole sets where user-facing progress lines are written.
func WithConsole(w io.Writer) Option {
	return func(o *Orchestrator) { o.console = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator. A missing session ID is generated.
func New(cfg Config, deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Capturer == nil || deps.Dispatcher == nil || deps.Actor == nil {
		return nil, errors.New("session: capturer, dispatcher and actor are required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	o := &Orchestrator{
		config:     cfg,
		capturer:   deps.Capturer,
		dispatcher: deps.Dispatcher,
		actor:      deps.Actor,
		console:    io.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "session", "session_id", cfg.ID)
	return o, nil
}

// ID returns the session ID.
func (o *Orchestrator) ID() string {
	return o.config.ID
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Snapshot returns the observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	return Snapshot{
		SessionID: o.config.ID,
		State:     o.state,
		Turns:     o.turns,
		Compute:   o.config.Compute.String(),
		Robot:     o.config.Robot.String(),
	}
}

// Run greets the visitor and loops until the session ends. It returns nil
// on a clean exit (exit word, repeated interrupt, cancelled ctx) and an
// error when the capture source fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.greet(ctx)

	interrupts := 0
	for {
		o.setState(StateListening)

		r := o.listen(ctx)
		if ctx.Err() != nil {
			o.finish("context cancelled")
			return nil
		}

		switch r.Kind {
		case capture.KindTimeout:
			o.logger.Debug("listen timed out")
			continue

		case capture.KindUnintelligible:
			o.say("Sorry, I could not understand that.")
			continue

		case capture.KindInterrupted:
			interrupts++
			if interrupts >= 2 {
				o.finish("interrupted twice")
				return nil
			}
			o.say("Interrupted. Press Ctrl+C again to exit.")
			continue

		case capture.KindFatal:
			o.finish("capture failed")
			return fmt.Errorf("session: capture: %w", r.Err)
		}

		interrupts = 0
		u := Utterance{ID: uuid.NewString(), Text: r.Text, Timestamp: time.Now()}
		o.say("You asked: %s", u.Text)

		if IsExitWord(u.Text, o.config.ExitWords) {
			o.say("Goodbye!")
			o.finish("exit word")
			return nil
		}

		if o.turn(ctx, u) {
			interrupts++
		}
		if ctx.Err() != nil {
			o.finish("context cancelled")
			return nil
		}
	}
}

// greet speaks the introduction. Failure is logged and ignored.
func (o *Orchestrator) greet(ctx context.Context) {
	o.setState(StateGreeting)
	if o.config.Greeting == "" {
		return
	}

	_, err := o.interruptible(ctx, o.config.SpeakTimeout, func(ctx context.Context) error {
		return o.actor.Speak(ctx, speech.Greeting(o.config.Greeting))
	})
	if err != nil {
		o.logger.Warn("greeting failed", "error", err)
		o.say("Greeting failed: %v", err)
		return
	}
	o.logger.Info("greeted visitor")
}

// listen runs one capture attempt that an interrupt can abandon.
func (o *Orchestrator) listen(ctx context.Context) capture.Result {
	var result capture.Result
	interrupted, _ := o.interruptible(ctx, 0, func(ctx context.Context) error {
		result = o.capturer.Capture(ctx, o.config.ListenTimeout)
		return nil
	})
	if interrupted {
		return capture.Interrupted(context.Canceled)
	}
	return result
}

// turn dispatches u and speaks the answer. It reports whether the user
// interrupted it.
func (o *Orchestrator) turn(ctx context.Context, u Utterance) bool {
	o.setState(StateDispatching)
	t := Turn{SessionID: o.config.ID, Utterance: u}
	defer func() {
		o.turns++
		for _, obs := range o.observers {
			obs.OnTurn(t)
		}
	}()

	start := time.Now()
	var answer Answer
	interrupted, err := o.interruptible(ctx, o.config.ResolveTimeout, func(ctx context.Context) error {
		var err error
		answer, err = o.dispatcher.Dispatch(ctx, u)
		return err
	})
	t.Answer = answer

	if err != nil {
		t.Err = err
		t.Outcome = outcomeOf(err)
		o.logger.Warn("dispatch failed",
			"outcome", t.Outcome,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		o.say("No answer: %v", err)
		return interrupted
	}

	o.logger.Info("answer received",
		"origin", answer.Origin,
		"score", answer.Score,
		"tier", answer.Tier,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	o.say("Answer: %s", answer.Text)
	t.Outcome = journal.OutcomeAnswered

	if o.config.ComputeSpeaks {
		return false
	}

	o.setState(StateSpeaking)
	interrupted, err = o.interruptible(ctx, o.config.SpeakTimeout, func(ctx context.Context) error {
		return o.actor.Speak(ctx, speech.Plain(answer.Text))
	})
	if err != nil {
		t.Err = err
		t.Outcome = journal.OutcomeSpeakError
		o.logger.Warn("speaking failed", "error", err)
		o.say("The robot could not speak the answer: %v", err)
		return interrupted
	}

	o.logger.Debug("answer spoken")
	return false
}

// interruptible runs fn under an optional timeout and cancels it when an
// interrupt arrives. It waits for fn to return in every case.
func (o *Orchestrator) interruptible(ctx context.Context, timeout time.Duration, fn func(context.Context) error) (interrupted bool, err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}

	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()

	select {
	case err = <-done:
		return false, err
	case <-o.interrupts:
		cancel()
		err = <-done
		if err == nil {
			err = context.Canceled
		}
		return true, err
	}
}

func outcomeOf(err error) string {
	var cmdErr *remote.CommandError
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return journal.OutcomeEmpty
	case errors.As(err, &cmdErr):
		return journal.OutcomeFailed
	default:
		return journal.OutcomeConnection
	}
}

func (o *Orchestrator) setState(s State) {
	if s == o.state {
		return
	}
	o.logger.Debug("state", "from", o.state.String(), "to", s.String())
	o.state = s

	snap := o.Snapshot()
	for _, obs := range o.observers {
		obs.OnState(snap)
	}
}

func (o *Orchestrator) finish(reason string) {
	o.logger.Info("session ended", "reason", reason, "turns", o.turns)
	o.setState(StateDone)
}

func (o *Orchestrator) say(format string, args ...any) {
	fmt.Fprintf(o.console, format+"\n", args...)
}
