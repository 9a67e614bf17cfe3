package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// SSHConfig configures an SSHExecutor.
type SSHConfig struct {
	HostKeyPolicy  HostKeyPolicy
	KnownHostsFile string
	DialTimeout    time.Duration
	Logger         *slog.Logger
}

// SSHExecutor runs commands over SSH.
type SSHExecutor struct {
	hostKey     ssh.HostKeyCallback
	dialTimeout time.Duration
	logger      *slog.Logger
}

// NewSSHExecutor creates an executor. The insecure policy is logged as a
// warning so it is visible at startup.
func NewSSHExecutor(cfg SSHConfig) (*SSHExecutor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "remote")

	cb, err := hostKeyCallback(cfg.HostKeyPolicy, cfg.KnownHostsFile, logger)
	if err != nil {
		return nil, err
	}

	if cfg.HostKeyPolicy == HostKeyInsecure || cfg.HostKeyPolicy == "" {
		logger.Warn("SSH host keys are not verified", "policy", HostKeyInsecure)
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	return &SSHExecutor{
		hostKey:     cb,
		dialTimeout: timeout,
		logger:      logger,
	}, nil
}

// Execute dials target, runs command, and closes the connection. A non-zero
// exit status is reported in Result, not as an error.
func (e *SSHExecutor) Execute(ctx context.Context, target Target, command string) (Result, error) {
	if target.Host == "" {
		return Result{}, ErrNoHost
	}

	config, err := e.clientConfig(target)
	if err != nil {
		return Result{}, err
	}

	addr := target.Addr()
	start := time.Now()

	client, err := e.dial(ctx, addr, config)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: new session: %v", ErrConnection, addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		client.Close()
		<-done
		e.logger.Warn("command aborted", "target", target.String(), "error", ctx.Err())
		return Result{}, fmt.Errorf("remote: %s: %w", addr, ctx.Err())

	case err := <-done:
		result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

		var exitErr *ssh.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitStatus()
		default:
			return result, fmt.Errorf("%w: %s: %v", ErrConnection, addr, err)
		}

		e.logger.Debug("command finished",
			"target", target.String(),
			"exit_code", result.ExitCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, nil
	}
}

// dial connects and completes the handshake within the dial timeout.
func (e *SSHExecutor) dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: e.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("remote: %s: %w", addr, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, addr, err)
	}

	deadline := time.Now().Add(e.dialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, classifyHandshake(addr, err)
	}
	conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func classifyHandshake(addr string, err error) error {
	switch {
	case errors.Is(err, ErrHostKeyMismatch):
		return fmt.Errorf("%w: %s", ErrHostKeyMismatch, addr)
	case strings.Contains(err.Error(), "unable to authenticate"):
		return fmt.Errorf("%w: %s: %v", ErrAuthentication, addr, err)
	case strings.Contains(err.Error(), ErrHostKeyMismatch.Error()):
		return fmt.Errorf("%w: %s", ErrHostKeyMismatch, addr)
	default:
		return fmt.Errorf("%w: %s: %v", ErrConnection, addr, err)
	}
}

// clientConfig builds auth methods from the target credential.
func (e *SSHExecutor) clientConfig(target Target) (*ssh.ClientConfig, error) {
	cred := target.Credential
	var methods []ssh.AuthMethod

	if cred.KeyFile != "" {
		pem, err := os.ReadFile(cred.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read key: %v", ErrAuthentication, err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("%w: parse key: %v", ErrAuthentication, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cred.Password != "" {
		password := cred.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	return &ssh.ClientConfig{
		User:            cred.User,
		Auth:            methods,
		HostKeyCallback: e.hostKey,
		Timeout:         e.dialTimeout,
	}, nil
}

// Verify SSHExecutor implements Executor at compile time.
var _ Executor = (*SSHExecutor)(nil)
