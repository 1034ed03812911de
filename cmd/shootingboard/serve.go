package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/poku-e/shootingboard/internal/config"
	"github.com/poku-e/shootingboard/internal/server"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the results site",
		Long: `Serve the results pages, their JSON payloads, chart images and Prometheus
metrics. Send SIGHUP to reload the results without restarting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := load(ctx, cfg)
			if err != nil {
				return err
			}
			srv := server.New(db, cfg)
			go reloadOnHangup(ctx, srv, cfg)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, then "+config.DefaultAddr+")")
	return cmd
}

func reloadOnHangup(ctx context.Context, srv *server.Server, cfg config.Config) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			db, err := load(ctx, cfg)
			if err != nil {
				slog.Error("reload failed", "err", err)
				continue
			}
			srv.Replace(db)
		}
	}
}
