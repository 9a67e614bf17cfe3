// Package capture turns the visitor's voice into text.
//
// Every attempt returns a Result whose Kind says what happened; there are no
// panics or sentinel strings for control flow. Two engines are provided:
//
//   - line: transcripts read line by line from a reader (a terminal, a pipe)
//   - google: audio from an external recorder process, transcribed by the
//     Google Cloud Speech-to-Text v1 API
package capture

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout is how long one attempt waits for speech.
const DefaultTimeout = 5 * time.Second

// Kind classifies a capture attempt.
type Kind int

const (
	// KindOK means Text holds a transcript.
	KindOK Kind = iota
	// KindTimeout means nobody spoke within the timeout.
	KindTimeout
	// KindUnintelligible means audio was heard but not understood.
	KindUnintelligible
	// KindInterrupted means the attempt was cancelled by the caller.
	KindInterrupted
	// KindFatal means the capture source is broken; Err says why.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTimeout:
		return "timeout"
	case KindUnintelligible:
		return "unintelligible"
	case KindInterrupted:
		return "interrupted"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one capture attempt.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// OK returns a successful result.
func OK(text string) Result { return Result{Kind: KindOK, Text: text} }

// Timeout returns a timeout result.
func Timeout() Result { return Result{Kind: KindTimeout} }

// Unintelligible returns an unintelligible result.
func Unintelligible() Result { return Result{Kind: KindUnintelligible} }

// Interrupted returns an interrupted result.
func Interrupted(err error) Result { return Result{Kind: KindInterrupted, Err: err} }

// Fatal returns a fatal result.
func Fatal(err error) Result { return Result{Kind: KindFatal, Err: err} }

// Capturer listens for one utterance.
type Capturer interface {
	// Capture blocks until speech is transcribed, timeout elapses, or ctx
	// is done. A zero timeout waits indefinitely.
	Capture(ctx context.Context, timeout time.Duration) Result
}

// Scripted replays a fixed sequence of results, then reports Fatal.
type Scripted struct {
	Results []Result
	next    int
}

// Capture returns the next scripted result.
func (s *Scripted) Capture(ctx context.Context, timeout time.Duration) Result {
	if ctx.Err() != nil {
		return Interrupted(ctx.Err())
	}
	if s.next >= len(s.Results) {
		return Fatal(fmt.Errorf("capture: script exhausted"))
	}
	r := s.Results[s.next]
	s.next++
	return r
}

// Remaining reports how many scripted results are left.
func (s *Scripted) Remaining() int {
	return len(s.Results) - s.next
}
