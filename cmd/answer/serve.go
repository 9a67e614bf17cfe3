package main

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/journal"
	"github.com/teslashibe/go-ask/pkg/web"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the answer API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}
			logger := log.L()

			engine, provider, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer provider.Close()

			serverOpts := []web.AnswerOption{
				web.WithHealthCheck(provider.Health),
				web.WithAnswerLogger(logger),
			}
			if cfg.Tracking.Enabled {
				j, err := journal.Open(cfg.Tracking.Path)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer j.Close()
				serverOpts = append(serverOpts, web.WithRecorder(j))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Serve.Addr)
			if err != nil {
				return err
			}
			return web.NewAnswerServer(engine, serverOpts...).Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from serve.addr)")
	return cmd
}

