// Package config loads go-ask configuration from a YAML file, a .env file
// and ASK_* environment variables, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-ask/pkg/remote"
)

// EnvPrefix prefixes every environment override, e.g. ASK_ROBOT_HOST.
const EnvPrefix = "ASK"

// secretKeys are omitted from the default file, so they need explicit env
// bindings.
var secretKeys = []string{
	"compute.password",
	"compute.key_file",
	"robot.password",
	"robot.key_file",
	"capture.api_key",
	"capture.credentials_file",
	"generator.api_key",
}

// Config is the complete configuration for both binaries.
type Config struct {
	Compute   HostConfig      `mapstructure:"compute" yaml:"compute"`
	Robot     HostConfig      `mapstructure:"robot" yaml:"robot"`
	SSH       SSHConfig       `mapstructure:"ssh" yaml:"ssh"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Speech    SpeechConfig    `mapstructure:"speech" yaml:"speech"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Resolver  ResolverConfig  `mapstructure:"resolver" yaml:"resolver"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Tracking  TrackingConfig  `mapstructure:"tracking" yaml:"tracking"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// HostConfig addresses one SSH node.
type HostConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	KeyFile  string `mapstructure:"key_file" yaml:"key_file,omitempty"`
}

// SSHConfig controls the remote channel.
type SSHConfig struct {
	// HostKeyPolicy is "insecure" or "tofu".
	HostKeyPolicy  string        `mapstructure:"host_key_policy" yaml:"host_key_policy"`
	KnownHostsFile string        `mapstructure:"known_hosts_file" yaml:"known_hosts_file"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// SessionConfig controls the orchestrator loop.
type SessionConfig struct {
	AnswerCommand  string        `mapstructure:"answer_command" yaml:"answer_command"`
	ComputeSpeaks  bool          `mapstructure:"compute_speaks" yaml:"compute_speaks"`
	Greeting       string        `mapstructure:"greeting" yaml:"greeting"`
	ExitWords      []string      `mapstructure:"exit_words" yaml:"exit_words"`
	ListenTimeout  time.Duration `mapstructure:"listen_timeout" yaml:"listen_timeout"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" yaml:"resolve_timeout"`
	SpeakTimeout   time.Duration `mapstructure:"speak_timeout" yaml:"speak_timeout"`
}

// SpeechConfig locates the speech program on the robot.
type SpeechConfig struct {
	Program string `mapstructure:"program" yaml:"program"`
	LocalIP string `mapstructure:"local_ip" yaml:"local_ip"`
}

// CaptureConfig selects and tunes the voice capture engine.
type CaptureConfig struct {
	// Engine is "line" (typed transcripts) or "google".
	Engine          string `mapstructure:"engine" yaml:"engine"`
	Recorder        string `mapstructure:"recorder" yaml:"recorder"`
	SampleRate      int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Language        string `mapstructure:"language" yaml:"language"`
	SilenceLevel    int    `mapstructure:"silence_level" yaml:"silence_level"`
	APIKey          string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
}

// ResolverConfig tunes knowledge base retrieval.
type ResolverConfig struct {
	KnowledgePath        string   `mapstructure:"knowledge_path" yaml:"knowledge_path"`
	Keywords             []string `mapstructure:"keywords" yaml:"keywords"`
	Threshold            float64  `mapstructure:"threshold" yaml:"threshold"`
	MaxLength            int      `mapstructure:"max_length" yaml:"max_length"`
	HighConfidence       float64  `mapstructure:"high_confidence" yaml:"high_confidence"`
	AcceptableConfidence float64  `mapstructure:"acceptable_confidence" yaml:"acceptable_confidence"`
}

// GeneratorConfig configures the generative fallback.
type GeneratorConfig struct {
	// Providers are tried in order: "http", "command".
	Providers    []string      `mapstructure:"providers" yaml:"providers"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model        string        `mapstructure:"model" yaml:"model"`
	SystemPrompt string        `mapstructure:"system_prompt" yaml:"system_prompt"`
	Temperature  float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	Command      string        `mapstructure:"command" yaml:"command"`
}

// TrackingConfig toggles the sqlite journal.
type TrackingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// DashboardConfig toggles the orchestrator dashboard.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// ServeConfig is the listen address of `answer serve`.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// DefaultPath returns ~/.ask/config.yaml.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns ~/.ask.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".ask"
	}
	return filepath.Join(homeDir, ".ask")
}

// Load reads the default config file.
func Load() (*Config, error) {
	return LoadFromPath(DefaultPath())
}

// LoadFromPath reads configuration from path, merged over the defaults and
// under environment overrides. A missing file is not an error; use
// WriteDefault to create one.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	// Existing variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to register defaults: %w", err)
	}

	// Example: ASK_COMPUTE_PASSWORD, ASK_TRACKING_ENABLED
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SSH.KnownHostsFile = expandPath(cfg.SSH.KnownHostsFile)
	cfg.Tracking.Path = expandPath(cfg.Tracking.Path)
	cfg.Resolver.KnowledgePath = expandPath(cfg.Resolver.KnowledgePath)
	cfg.Compute.KeyFile = expandPath(cfg.Compute.KeyFile)
	cfg.Robot.KeyFile = expandPath(cfg.Robot.KeyFile)
	cfg.Capture.CredentialsFile = expandPath(cfg.Capture.CredentialsFile)

	return &cfg, nil
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	path = expandPath(path)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := Default().SaveToPath(path); err != nil {
		return false, err
	}
	return true, nil
}

// SaveToPath writes the configuration as YAML.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Validate checks values that would otherwise fail deep inside a session.
// Host addresses are not checked here: the robot host may come from a
// prompt.
func (c *Config) Validate() error {
	if !remote.HostKeyPolicy(c.SSH.HostKeyPolicy).Valid() {
		return &ConfigError{Field: "ssh.host_key_policy", Message: fmt.Sprintf("unknown policy %q, must be insecure or tofu", c.SSH.HostKeyPolicy)}
	}

	switch c.Capture.Engine {
	case EngineLine, EngineGoogle:
	default:
		return &ConfigError{Field: "capture.engine", Message: fmt.Sprintf("unknown engine %q, must be line or google", c.Capture.Engine)}
	}

	for _, p := range c.Generator.Providers {
		switch p {
		case ProviderHTTP:
		case ProviderCommand:
			if strings.TrimSpace(c.Generator.Command) == "" {
				return &ConfigError{Field: "generator.command", Message: "required by the command provider"}
			}
		default:
			return &ConfigError{Field: "generator.providers", Message: fmt.Sprintf("unknown provider %q", p)}
		}
	}

	if c.Resolver.Threshold < 0 {
		return &ConfigError{Field: "resolver.threshold", Message: "cannot be negative"}
	}
	if c.Resolver.AcceptableConfidence > c.Resolver.HighConfidence {
		return &ConfigError{Field: "resolver.acceptable_confidence", Message: "must not exceed high_confidence"}
	}
	if c.Resolver.MaxLength <= 0 {
		return &ConfigError{Field: "resolver.max_length", Message: "must be positive"}
	}

	if c.Session.ListenTimeout < 0 || c.Session.ResolveTimeout < 0 || c.Session.SpeakTimeout < 0 {
		return &ConfigError{Field: "session", Message: "timeouts cannot be negative"}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return &ConfigError{Field: "log.level", Message: fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", c.Log.Level)}
	}

	return nil
}

// writeConfigFile writes cfg as YAML using its yaml tags.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
