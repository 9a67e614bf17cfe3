package config

import (
	"time"

	"github.com/teslashibe/go-ask/pkg/capture"
	"github.com/teslashibe/go-ask/pkg/inference"
	"github.com/teslashibe/go-ask/pkg/remote"
	"github.com/teslashibe/go-ask/pkg/resolve"
	"github.com/teslashibe/go-ask/pkg/session"
	"github.com/teslashibe/go-ask/pkg/speech"
)

// Generator provider names.
const (
	ProviderHTTP    = "http"
	ProviderCommand = "command"
)

// Capture engine names.
const (
	EngineLine   = "line"
	EngineGoogle = "google"
)

// Default robot login, matching the stock robot image.
const DefaultRobotUser = "nao"

// Default returns the built-in configuration. Hosts and secrets are empty.
func Default() *Config {
	sess := session.DefaultConfig()
	google := capture.DefaultGoogleConfig()
	gen := inference.DefaultConfig()

	return &Config{
		Compute: HostConfig{Port: remote.DefaultPort},
		Robot:   HostConfig{Port: remote.DefaultPort, User: DefaultRobotUser},
		SSH: SSHConfig{
			HostKeyPolicy:  string(remote.HostKeyInsecure),
			KnownHostsFile: "~/.ask/known_hosts",
			DialTimeout:    10 * time.Second,
		},
		Session: SessionConfig{
			AnswerCommand:  sess.AnswerCommand,
			ComputeSpeaks:  sess.ComputeSpeaks,
			Greeting:       sess.Greeting,
			ExitWords:      append([]string(nil), sess.ExitWords...),
			ListenTimeout:  sess.ListenTimeout,
			ResolveTimeout: sess.ResolveTimeout,
			SpeakTimeout:   sess.SpeakTimeout,
		},
		Speech: SpeechConfig{
			Program: speech.DefaultProgram,
			LocalIP: speech.DefaultLocalIP,
		},
		Capture: CaptureConfig{
			Engine:       EngineLine,
			Recorder:     google.Recorder,
			SampleRate:   google.SampleRate,
			Language:     google.Language,
			SilenceLevel: google.SilenceLevel,
		},
		Resolver: ResolverConfig{
			KnowledgePath:        "~/.ask/knowledge.json",
			Keywords:             append([]string(nil), resolve.DefaultKeywords...),
			Threshold:            resolve.DefaultThreshold,
			MaxLength:            resolve.DefaultMaxLength,
			HighConfidence:       resolve.DefaultHighConfidence,
			AcceptableConfidence: resolve.DefaultAcceptableConfidence,
		},
		Generator: GeneratorConfig{
			Providers:    []string{ProviderHTTP},
			BaseURL:      gen.BaseURL,
			Model:        gen.Model,
			SystemPrompt: gen.SystemPrompt,
			Temperature:  gen.Temperature,
			Timeout:      gen.Timeout,
			MaxRetries:   gen.MaxRetries,
		},
		Tracking: TrackingConfig{
			Enabled: false,
			Path:    "~/.ask/journal.db",
		},
		Dashboard: DashboardConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8090",
		},
		Serve: ServeConfig{Addr: ":8091"},
		Log:   LogConfig{Level: "info"},
	}
}
