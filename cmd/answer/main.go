// answer resolves one question on the compute node: knowledge base first,
// generative model as fallback. The answer goes to stdout; logs go to
// stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ask/internal/config"
	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/inference"
	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/knowledge"
	"github.com/teslashibe/go-ask/pkg/remote"
	"github.com/teslashibe/go-ask/pkg/resolve"
	"github.com/teslashibe/go-ask/pkg/session"
	"github.com/teslashibe/go-ask/pkg/speech"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

type options struct {
	configPath    string
	logLevel      string
	knowledgePath string
	robotHost     string
	speak         bool
	output        string
	track         bool

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "answer: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "answer [flags] [--] QUESTION",
		Short:         "Answer a question about the faculty",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswer(cmd.Context(), opts, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", config.DefaultPath(), "Config file")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.knowledgePath, "knowledge", "", "Knowledge base file (JSON or YAML)")
	f.BoolVar(&opts.track, "track", false, "Record resolutions in the journal")

	rf := root.Flags()
	rf.StringVar(&opts.robotHost, "robot-ip", "", "Robot address, required with --speak")
	rf.BoolVar(&opts.speak, "speak", false, "Have the robot speak the answer")
	rf.StringVar(&opts.output, "output", outputText, "Output format: text, json")

	root.AddCommand(newServeCmd(opts), newKBCmd(opts))
	return root
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFromPath(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("knowledge") {
		cfg.Resolver.KnowledgePath = o.knowledgePath
	}
	if flags.Changed("track") {
		cfg.Tracking.Enabled = o.track
	}
	if flags.Changed("robot-ip") {
		cfg.Robot.Host = o.robotHost
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.Log.Level)
	o.cfg = cfg
	return nil
}

// newEngine loads the knowledge base and wires the configured generator.
// The returned provider must be closed by the caller.
func newEngine(cfg *config.Config, logger *slog.Logger) (*resolve.Engine, inference.Provider, error) {
	kb, err := knowledge.Load(cfg.Resolver.KnowledgePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("knowledge base loaded", "source", kb.Source(), "entries", kb.Len())

	provider, err := cfg.Provider(logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("generator ready", "provider", inference.ProviderName(provider))

	opts := append(cfg.ResolveOptions(logger), resolve.WithGenerator(inference.NewTextGenerator(provider)))
	return resolve.New(kb, opts...), provider, nil
}

func runAnswer(ctx context.Context, opts *options, question string, out io.Writer) error {
	cfg := opts.cfg
	logger := log.L()

	if opts.output != outputText && opts.output != outputJSON {
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	if opts.speak && cfg.Robot.Host == "" {
		return fmt.Errorf("--speak needs --robot-ip")
	}

	engine, provider, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	answer := session.AnswerFromResult(engine.Answer(ctx, question))
	logger.Info("answered", "origin", answer.Origin, "score", answer.Score, "tier", answer.Tier)

	if cfg.Tracking.Enabled {
		record(ctx, cfg.Tracking.Path, question, answer, logger)
	}

	if opts.speak && answer.Text != "" {
		if err := speak(ctx, cfg, answer.Text, logger); err != nil {
			logger.Warn("speaking failed", "error", err)
		}
	}

	return writeAnswer(out, opts.output, answer)
}

func writeAnswer(w io.Writer, format string, a session.Answer) error {
	if format == outputJSON {
		return json.NewEncoder(w).Encode(a)
	}
	_, err := fmt.Fprintln(w, a.Text)
	return err
}

func speak(ctx context.Context, cfg *config.Config, text string, logger *slog.Logger) error {
	exec, err := remote.NewSSHExecutor(cfg.RemoteSSHConfig(logger))
	if err != nil {
		return err
	}
	actor := speech.NewRemoteActor(exec, cfg.Robot.Target(), cfg.SpeechOptions(logger)...)

	if t := cfg.Session.SpeakTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return actor.Speak(ctx, speech.Plain(text))
}

func record(ctx context.Context, path, question string, a session.Answer, logger *slog.Logger) {
	j, err := journal.Open(path)
	if err != nil {
		logger.Warn("journal unavailable", "error", err)
		return
	}
	defer j.Close()

	outcome := journal.OutcomeResolved
	if a.Text == "" {
		outcome = journal.OutcomeEmpty
	}
	if _, err := j.Record(ctx, journal.Turn{
		Question: question,
		Answer:   a.Text,
		Score:    a.Score,
		Origin:   a.Origin,
		Outcome:  outcome,
	}); err != nil {
		logger.Warn("journal write failed", "error", err)
	}
}
