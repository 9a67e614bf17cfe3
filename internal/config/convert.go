package config

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-ask/pkg/capture"
	"github.com/teslashibe/go-ask/pkg/inference"
	"github.com/teslashibe/go-ask/pkg/remote"
	"github.com/teslashibe/go-ask/pkg/resolve"
	"github.com/teslashibe/go-ask/pkg/session"
	"github.com/teslashibe/go-ask/pkg/speech"
)

// Target converts the host entry into a remote target.
func (h HostConfig) Target() remote.Target {
	return remote.Target{
		Host: h.Host,
		Port: h.Port,
		Credential: remote.Credential{
			User:     h.User,
			Password: h.Password,
			KeyFile:  h.KeyFile,
		},
	}
}

// SessionConfig builds the orchestrator configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Compute:        c.Compute.Target(),
		Robot:          c.Robot.Target(),
		AnswerCommand:  c.Session.AnswerCommand,
		ComputeSpeaks:  c.Session.ComputeSpeaks,
		Greeting:       c.Session.Greeting,
		ExitWords:      c.Session.ExitWords,
		ListenTimeout:  c.Session.ListenTimeout,
		ResolveTimeout: c.Session.ResolveTimeout,
		SpeakTimeout:   c.Session.SpeakTimeout,
	}
}

// RemoteSSHConfig builds the SSH executor configuration.
func (c *Config) RemoteSSHConfig(logger *slog.Logger) remote.SSHConfig {
	return remote.SSHConfig{
		HostKeyPolicy:  remote.HostKeyPolicy(c.SSH.HostKeyPolicy),
		KnownHostsFile: c.SSH.KnownHostsFile,
		DialTimeout:    c.SSH.DialTimeout,
		Logger:         logger,
	}
}

// SpeechOptions configures a remote speech actor.
func (c *Config) SpeechOptions(logger *slog.Logger) []speech.RemoteOption {
	return []speech.RemoteOption{
		speech.WithProgram(c.Speech.Program),
		speech.WithLocalIP(c.Speech.LocalIP),
		speech.WithLogger(logger),
	}
}

// GoogleConfig builds the Google capture configuration.
func (c *Config) GoogleConfig(logger *slog.Logger) capture.GoogleConfig {
	return capture.GoogleConfig{
		Recorder:        c.Capture.Recorder,
		SampleRate:      c.Capture.SampleRate,
		Language:        c.Capture.Language,
		SilenceLevel:    c.Capture.SilenceLevel,
		APIKey:          c.Capture.APIKey,
		CredentialsFile: c.Capture.CredentialsFile,
		Logger:          logger,
	}
}

// ResolveOptions configures the resolution engine, except its generator.
func (c *Config) ResolveOptions(logger *slog.Logger) []resolve.Option {
	return []resolve.Option{
		resolve.WithKeywords(c.Resolver.Keywords...),
		resolve.WithThreshold(c.Resolver.Threshold),
		resolve.WithMaxLength(c.Resolver.MaxLength),
		resolve.WithPolicy(resolve.Policy{
			High:       c.Resolver.HighConfidence,
			Acceptable: c.Resolver.AcceptableConfidence,
		}),
		resolve.WithLogger(logger),
	}
}

// InferenceOptions configures generation providers.
func (c *Config) InferenceOptions(logger *slog.Logger) []inference.Option {
	opts := []inference.Option{
		inference.WithBaseURL(c.Generator.BaseURL),
		inference.WithModel(c.Generator.Model),
		inference.WithMaxLength(c.Resolver.MaxLength),
		inference.WithTemperature(c.Generator.Temperature),
		inference.WithTimeout(c.Generator.Timeout),
		inference.WithRetry(c.Generator.MaxRetries, inference.DefaultConfig().RetryDelay),
		inference.WithLogger(logger),
	}
	if c.Generator.APIKey != "" {
		opts = append(opts, inference.WithAPIKey(c.Generator.APIKey))
	}
	if c.Generator.SystemPrompt != "" {
		opts = append(opts, inference.WithSystemPrompt(c.Generator.SystemPrompt))
	}
	return opts
}

// Provider builds the configured generation providers, chained in order
// when there is more than one.
func (c *Config) Provider(logger *slog.Logger) (inference.Provider, error) {
	opts := c.InferenceOptions(logger)

	var providers []inference.Provider
	for _, name := range c.Generator.Providers {
		var (
			p   inference.Provider
			err error
		)
		switch name {
		case ProviderHTTP:
			p, err = inference.NewClient(opts...)
		case ProviderCommand:
			p, err = inference.NewCommand(c.Generator.Command, opts...)
		default:
			err = &ConfigError{Field: "generator.providers", Message: fmt.Sprintf("unknown provider %q", name)}
		}
		if err != nil {
			for _, built := range providers {
				built.Close()
			}
			return nil, err
		}
		providers = append(providers, p)
	}

	switch len(providers) {
	case 0:
		return nil, &ConfigError{Field: "generator.providers", Message: "at least one provider is required"}
	case 1:
		return providers[0], nil
	default:
		return inference.NewChainWithLogger(logger, providers...)
	}
}
