package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/loopfarm/printloop/internal/config"
	"github.com/loopfarm/printloop/internal/logging"
	"github.com/loopfarm/printloop/internal/server"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Start the printloop HTTP service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to TOML configuration file",
		},
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Usage:   "Listen address, overrides the configured one",
		},
	},
	Action: serveAction,
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.NewConfig(cmd.String("config"))
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to load config: %w", err), 1)
	}
	if listen := cmd.String("listen"); listen != "" {
		cfg.ListenAddr = listen
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Errorf("invalid config: %w", err), 1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogOutput); err != nil {
		return cli.Exit(fmt.Errorf("failed to set up logging: %w", err), 1)
	}
	logger := slog.Default()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to create server: %w", err), 1)
	}

	if err := srv.Run(ctx, logger.Handler()); err != nil {
		return cli.Exit(fmt.Errorf("failed to run server: %w", err), 1)
	}

	logger.Info("Server shutdown complete")
	return nil
}
