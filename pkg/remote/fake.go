package remote

import (
	"context"
	"sync"
)

// Fake is an in-memory Executor for tests.
type Fake struct {
	// Handler decides the outcome of each call. A nil handler succeeds with
	// empty output.
	Handler func(ctx context.Context, target Target, command string) (Result, error)

	mu    sync.Mutex
	calls []Call
}

// Call records one Execute invocation.
type Call struct {
	Target  Target
	Command string
}

// Execute records the call and delegates to Handler.
func (f *Fake) Execute(ctx context.Context, target Target, command string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Target: target, Command: command})
	f.mu.Unlock()

	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(ctx, target, command)
}

// Calls returns a copy of recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the commands sent to host.
func (f *Fake) CallsTo(host string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Target.Host == host {
			out = append(out, c.Command)
		}
	}
	return out
}

var _ Executor = (*Fake)(nil)
