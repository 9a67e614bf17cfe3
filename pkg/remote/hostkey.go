package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy selects how server host keys are verified.
type HostKeyPolicy string

const (
	// HostKeyInsecure accepts any host key.
	HostKeyInsecure HostKeyPolicy = "insecure"

	// HostKeyTOFU records unknown hosts in a known_hosts file on first use
	// and rejects later mismatches.
	HostKeyTOFU HostKeyPolicy = "tofu"
)

// Valid reports whether p is a known policy.
func (p HostKeyPolicy) Valid() bool {
	return p == HostKeyInsecure || p == HostKeyTOFU
}

// hostKeyCallback builds the callback for policy.
func hostKeyCallback(policy HostKeyPolicy, knownHostsPath string, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	switch policy {
	case HostKeyInsecure, "":
		return ssh.InsecureIgnoreHostKey(), nil
	case HostKeyTOFU:
		return newTOFU(knownHostsPath, logger)
	default:
		return nil, fmt.Errorf("remote: unknown host key policy %q", policy)
	}
}

type tofu struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func newTOFU(path string, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	if path == "" {
		return nil, errors.New("remote: tofu policy needs a known_hosts path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("remote: create known_hosts dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("remote: open known_hosts: %w", err)
	}
	f.Close()

	t := &tofu{path: path, logger: logger}
	return t.check, nil
}

// check reloads the file on every call so hosts recorded earlier in the
// process are honoured.
func (t *tofu) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cb, err := knownhosts.New(t.path)
	if err != nil {
		return fmt.Errorf("remote: load known_hosts: %w", err)
	}

	err = cb(hostname, remote, key)
	if err == nil {
		return nil
	}

	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) {
		return err
	}
	if len(keyErr.Want) > 0 {
		return fmt.Errorf("%w: %s", ErrHostKeyMismatch, hostname)
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("remote: record host key: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("remote: record host key: %w", err)
	}

	t.logger.Info("recorded new host key",
		"host", hostname,
		"fingerprint", ssh.FingerprintSHA256(key),
	)
	return nil
}
