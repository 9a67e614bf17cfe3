// Package session runs the question loop between a visitor, the compute node
// that resolves answers, and the robot that speaks them.
//
// The loop is strictly sequential:
//
//	Greeting -> Listening -> Dispatching -> Speaking -> Listening ...
//
// and ends in Done when the visitor says an exit word, interrupts twice in a
// row, or the capture source fails for good. Every other failure is logged
// and the loop goes back to listening.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-ask/pkg/remote"
)

// State of the orchestrator.
type State int

const (
	StateIdle State = iota
	StateGreeting
	StateListening
	StateDispatching
	StateSpeaking
	StateDone
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateGreeting:    "greeting",
	StateListening:   "listening",
	StateDispatching: "dispatching",
	StateSpeaking:    "speaking",
	StateDone:        "done",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Default session settings.
const (
	DefaultGreeting       = "Hello! I am Pepper robot. What would you like to hear about FEI TUKE?"
	DefaultListenTimeout  = 5 * time.Second
	DefaultResolveTimeout = 120 * time.Second
	DefaultSpeakTimeout   = 60 * time.Second
	DefaultAnswerCommand  = "source ~/miniconda3/etc/profile.d/conda.sh && conda activate godel && answer"
)

// DefaultExitWords end the session when spoken on their own.
var DefaultExitWords = []string{"exit", "quit", "stop"}

// ErrEmptyResponse is returned when the compute node printed no answer.
var ErrEmptyResponse = errors.New("session: empty response")

// Config is immutable for the life of a session.
type Config struct {
	// ID identifies the session in logs and the journal.
	ID string

	Compute remote.Target
	Robot   remote.Target

	// AnswerCommand is the shell prefix that runs the answer program on the
	// compute node. Arguments are appended to it.
	AnswerCommand string

	// ComputeSpeaks asks the compute node to speak the answer itself
	// instead of the orchestrator doing it.
	ComputeSpeaks bool

	Greeting  string
	ExitWords []string

	// Zero means unbounded.
	ListenTimeout  time.Duration
	ResolveTimeout time.Duration
	SpeakTimeout   time.Duration
}

// DefaultConfig returns defaults without any targets.
func DefaultConfig() Config {
	return Config{
		AnswerCommand:  DefaultAnswerCommand,
		Greeting:       DefaultGreeting,
		ExitWords:      DefaultExitWords,
		ListenTimeout:  DefaultListenTimeout,
		ResolveTimeout: DefaultResolveTimeout,
		SpeakTimeout:   DefaultSpeakTimeout,
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Compute.Host == "" {
		return &ConfigError{Field: "Compute.Host", Message: "compute node host is required"}
	}
	if c.Robot.Host == "" {
		return &ConfigError{Field: "Robot.Host", Message: "robot host is required"}
	}
	if strings.TrimSpace(c.AnswerCommand) == "" {
		return &ConfigError{Field: "AnswerCommand", Message: "answer command is required"}
	}
	if c.ListenTimeout < 0 || c.ResolveTimeout < 0 || c.SpeakTimeout < 0 {
		return &ConfigError{Field: "Timeouts", Message: "timeouts must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "session: " + e.Message
}

// IsExitWord reports whether the whole of text is one of words, ignoring
// case and surrounding spaces.
func IsExitWord(text string, words []string) bool {
	text = strings.TrimSpace(text)
	for _, w := range words {
		if strings.EqualFold(text, w) {
			return true
		}
	}
	return false
}

// Utterance is one transcribed question.
type Utterance struct {
	ID        string
	Text      string
	Timestamp time.Time
}

// Answer is what the compute node returned.
type Answer struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Origin string  `json:"origin"`
	Tier   string  `json:"tier"`
}

// Turn is one completed pass through the loop.
type Turn struct {
	SessionID string
	Utterance Utterance
	Answer    Answer
	Outcome   string
	Err       error
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	SessionID string
	State     State
	Turns     int
	Compute   string
	Robot     string
}
