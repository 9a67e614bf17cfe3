// Package remote runs single shell commands on the compute node and the robot.
//
// Every Execute call dials, runs exactly one command to completion, and closes
// the connection. Nothing is pooled between calls.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the SSH port used when a Target has none.
const DefaultPort = 22

// Sentinel errors for transport failures.
var (
	// ErrConnection covers dial, handshake and session failures.
	ErrConnection = errors.New("remote: connection failed")

	// ErrAuthentication is returned when the remote rejects the credentials.
	ErrAuthentication = errors.New("remote: authentication failed")

	// ErrHostKeyMismatch is returned when a known host presents a different key.
	ErrHostKeyMismatch = errors.New("remote: host key mismatch")

	// ErrNoHost is returned when a Target has no host.
	ErrNoHost = errors.New("remote: no host")
)

// Credential authenticates against a node. Password and KeyFile may both be
// set; the key is tried first.
type Credential struct {
	User     string
	Password string
	KeyFile  string
}

// Target is a node reachable over SSH.
type Target struct {
	Host       string
	Port       int
	Credential Credential
}

// Addr returns host:port.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// String returns user@host:port.
func (t Target) String() string {
	if t.Credential.User == "" {
		return t.Addr()
	}
	return t.Credential.User + "@" + t.Addr()
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Err returns a *CommandError for a non-zero exit code, nil otherwise.
func (r Result) Err() error {
	if r.ExitCode == 0 {
		return nil
	}
	return &CommandError{ExitCode: r.ExitCode, Stderr: strings.TrimSpace(r.Stderr)}
}

// Executor runs one command on a target.
type Executor interface {
	Execute(ctx context.Context, target Target, command string) (Result, error)
}

// CommandError reports a command that exited with a non-zero status.
type CommandError struct {
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("remote: command exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("remote: command exited with status %d: %s", e.ExitCode, e.Stderr)
}
