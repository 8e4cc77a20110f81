// Command reactorctl is the operator tool of the reactor: it applies the
// database schema and publishes hand-written events.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/config"
	"github.com/snowparadise/reactor/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := &cli.Command{
		Name:  "reactorctl",
		Usage: "operate the marketplace reactor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres connection string",
				Value:   cfg.DatabaseURL,
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				Value:   cfg.NATSURL,
				Sources: cli.EnvVars("NATS_URL"),
			},
		},
	}
	NewMigrateCmd(log).Register(app)
	NewEmitCmd(cfg, log).Register(app)

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
