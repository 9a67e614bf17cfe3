// ask is the operator-side session orchestrator. It greets visitors through
// the robot, listens for questions, asks the compute node for answers over
// SSH and has the robot speak them.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ask/internal/config"
	"github.com/teslashibe/go-ask/internal/log"
)

type options struct {
	configPath  string
	robotHost   string
	computeHost string
	engine      string
	logLevel    string
	speak       bool
	dashboard   bool
	track       bool

	cfg *config.Config
}

func main() {
	os.Exit(execute(newRootCmd(), os.Args[1:], os.Stderr))
}

// execute runs root with args and reports any failure on stderr, including
// flag, config and subcommand errors. It returns the process exit code.
func execute(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "ask",
		Short:         "Run a question and answer session on the robot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), opts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", config.DefaultPath(), "Config file")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rf := root.Flags()
	rf.StringVar(&opts.robotHost, "robot-ip", "", "Robot address (skips the prompt)")
	rf.StringVar(&opts.computeHost, "compute-host", "", "Compute node address")
	rf.StringVar(&opts.engine, "capture", "", "Capture engine: line, google")
	rf.BoolVar(&opts.speak, "speak", false, "Let the compute node speak answers itself")
	rf.BoolVar(&opts.dashboard, "dashboard", false, "Serve the live dashboard")
	rf.BoolVar(&opts.track, "track", false, "Record turns in the journal")

	root.AddCommand(newConfigCmd(opts))
	return root
}

// load reads configuration, applies flags and initialises logging.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFromPath(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("compute-host") {
		cfg.Compute.Host = o.computeHost
	}
	if flags.Changed("capture") {
		cfg.Capture.Engine = o.engine
	}
	if flags.Changed("speak") {
		cfg.Session.ComputeSpeaks = o.speak
	}
	if flags.Changed("dashboard") {
		cfg.Dashboard.Enabled = o.dashboard
	}
	if flags.Changed("track") {
		cfg.Tracking.Enabled = o.track
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.Log.Level)
	o.cfg = cfg
	return nil
}

func newConfigCmd(opts *options) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		// The file may not exist yet, so skip the root's loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.WriteDefault(opts.configPath)
			if err != nil {
				return err
			}
			if !written {
				fmt.Fprintf(cmd.OutOrStdout(), "Config already exists: %s\n", opts.configPath)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", opts.configPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *opts.cfg
			shown.Compute.Password = redact(shown.Compute.Password)
			shown.Robot.Password = redact(shown.Robot.Password)
			shown.Capture.APIKey = redact(shown.Capture.APIKey)
			shown.Generator.APIKey = redact(shown.Generator.APIKey)
			return printYAML(cmd.OutOrStdout(), &shown)
		},
	})

	return cfgCmd
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
