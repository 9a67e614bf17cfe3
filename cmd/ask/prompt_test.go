package main

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRobotHost(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		suggested string
		want      string
	}{
		{"confirmed", "10.0.0.5\ny\n", "", "10.0.0.5"},
		{"retry after no", "10.0.0.4\nn\n10.0.0.5\nyes\n", "", "10.0.0.5"},
		{"accept suggestion", "\ny\n", "192.168.1.20", "192.168.1.20"},
		{"invalid answer repeats", "10.0.0.5\nmaybe\nY\n", "", "10.0.0.5"},
		{"skips blank lines", "\n\n10.0.0.5\ny\n", "", "10.0.0.5"},
		{"last line without newline", "10.0.0.5\ny", "", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := promptRobotHost(bufio.NewReader(strings.NewReader(tt.input)), &out, tt.suggested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Is this correct?")
		})
	}
}

func TestPromptRobotHostEOF(t *testing.T) {
	var out bytes.Buffer
	_, err := promptRobotHost(bufio.NewReader(strings.NewReader("10.0.0.5\n")), &out, "")
	assert.ErrorIs(t, err, errNoRobotHost)
}

func TestRootCommandFlags(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"robot-ip", "compute-host", "capture", "speak", "dashboard", "track"} {
		assert.NotNil(t, root.Flags().Lookup(name), name)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestExecuteReportsErrors(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid log level", []string{"--config", cfgPath, "--log-level", "verbose"}, "log.level"},
		{"unknown flag", []string{"--config", cfgPath, "--no-such-flag"}, "no-such-flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			code := execute(newRootCmd(), tt.args, &stderr)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), "❌")
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestExecuteConfigInit(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	var stderr bytes.Buffer
	root := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)

	assert.Equal(t, 0, execute(root, []string{"config", "init", "--config", cfgPath}, &stderr))
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), cfgPath)
}
