package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-ask/internal/config"
	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/capture"
	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/remote"
	"github.com/teslashibe/go-ask/pkg/session"
	"github.com/teslashibe/go-ask/pkg/speech"
	"github.com/teslashibe/go-ask/pkg/web"
)

func runSession(parent context.Context, opts *options) error {
	cfg := opts.cfg
	stdin := bufio.NewReader(os.Stdin)

	host, err := resolveRobotHost(opts, cfg, stdin)
	if err != nil {
		return err
	}
	cfg.Robot.Host = host
	if cfg.Compute.Host == "" {
		return fmt.Errorf("compute node address is required: pass --compute-host or set compute.host")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM)
	defer stop()

	logger := log.L()

	var j *journal.Journal
	if cfg.Tracking.Enabled {
		j, err = journal.Open(cfg.Tracking.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
	}

	var dashboard *web.Server
	if cfg.Dashboard.Enabled {
		var webOpts []web.Option
		if j != nil {
			webOpts = append(webOpts, web.WithJournal(j))
		}
		dashboard = web.NewServer(cfg.Dashboard.Addr, append(webOpts, web.WithLogger(logger))...)
		dashboard.StartAsync(ctx)
		logger = slog.New(dashboard.LogHandler(logger.Handler()))
		fmt.Printf("🌐 Dashboard: http://%s\n", cfg.Dashboard.Addr)
	}

	exec, err := remote.NewSSHExecutor(cfg.RemoteSSHConfig(logger))
	if err != nil {
		return err
	}

	capturer, err := newCapturer(ctx, cfg, stdin, logger)
	if err != nil {
		return err
	}

	sc := cfg.SessionConfig()
	deps := session.Deps{
		Capturer:   capturer,
		Dispatcher: session.NewRemoteDispatcher(exec, sc),
		Actor:      speech.NewRemoteActor(exec, sc.Robot, cfg.SpeechOptions(logger)...),
	}

	interrupts := make(chan struct{}, 1)
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt)
	defer signal.Stop(sigint)
	go forwardInterrupts(ctx, sigint, interrupts)

	sessOpts := []session.Option{
		session.WithConsole(os.Stdout),
		session.WithInterrupts(interrupts),
		session.WithLogger(logger),
	}
	if j != nil {
		sessOpts = append(sessOpts, session.WithObserver(session.NewJournalObserver(j, logger)))
	}
	if dashboard != nil {
		sessOpts = append(sessOpts, session.WithObserver(dashboard))
	}

	orch, err := session.New(sc, deps, sessOpts...)
	if err != nil {
		return err
	}

	fmt.Printf("🤖 Robot %s, compute node %s\n", sc.Robot, sc.Compute)
	fmt.Println("Say (or type) \"stop\" to end the session. Press Ctrl+C twice to exit.")
	return orch.Run(ctx)
}

// resolveRobotHost takes the address from the flag, or prompts when stdin
// is a terminal, or falls back to the configured host.
func resolveRobotHost(opts *options, cfg *config.Config, stdin *bufio.Reader) (string, error) {
	if opts.robotHost != "" {
		return opts.robotHost, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return promptRobotHost(stdin, os.Stdout, cfg.Robot.Host)
	}
	if cfg.Robot.Host != "" {
		return cfg.Robot.Host, nil
	}
	return "", errNoRobotHost
}

func newCapturer(ctx context.Context, cfg *config.Config, stdin io.Reader, logger *slog.Logger) (capture.Capturer, error) {
	switch cfg.Capture.Engine {
	case config.EngineGoogle:
		return capture.NewGoogleCapturer(ctx, cfg.GoogleConfig(logger))
	default:
		return capture.NewLineCapturer(stdin, os.Stdout), nil
	}
}

// forwardInterrupts turns SIGINT into session interrupts. A pending
// interrupt is not duplicated.
func forwardInterrupts(ctx context.Context, sigint <-chan os.Signal, interrupts chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigint:
			fmt.Println()
			select {
			case interrupts <- struct{}{}:
			default:
			}
		}
	}
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
