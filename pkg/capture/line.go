package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// LineCapturer reads one transcript per line from r. It is the engine used
// when a person types questions at a terminal or another process pipes
// transcripts in.
type LineCapturer struct {
	r      io.Reader
	prompt io.Writer

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewLineCapturer reads from r. When prompt is non-nil a short cue is
// written to it before each attempt.
func NewLineCapturer(r io.Reader, prompt io.Writer) *LineCapturer {
	return &LineCapturer{
		r:      r,
		prompt: prompt,
		lines:  make(chan lineResult),
	}
}

// start launches the single reader goroutine. Lines that arrive while no
// one is capturing wait for the next attempt.
func (c *LineCapturer) start() {
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(c.r)
		for sc.Scan() {
			c.lines <- lineResult{text: sc.Text()}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		c.lines <- lineResult{err: err}
	}()
}

// Capture waits for the next line.
func (c *LineCapturer) Capture(ctx context.Context, timeout time.Duration) Result {
	c.once.Do(c.start)

	if c.prompt != nil {
		fmt.Fprint(c.prompt, "Listening... ")
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return Interrupted(ctx.Err())
	case <-expired:
		return Timeout()
	case line, ok := <-c.lines:
		if !ok {
			return Fatal(fmt.Errorf("capture: input closed: %w", io.EOF))
		}
		if line.err != nil {
			return Fatal(fmt.Errorf("capture: read input: %w", line.err))
		}
		text := strings.TrimSpace(line.text)
		if text == "" {
			return Unintelligible()
		}
		return OK(text)
	}
}

var _ Capturer = (*LineCapturer)(nil)
