package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/store/postgres"
	"github.com/snowparadise/reactor/pkg/logger"
)

// MigrateCmd applies the embedded schema.
type MigrateCmd struct {
	log   *logger.Logger
	purge bool
}

func NewMigrateCmd(log *logger.Logger) *MigrateCmd {
	return &MigrateCmd{log: log}
}

func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "migrate",
		Usage:     "Apply the database schema",
		UsageText: "reactorctl migrate [--purge-windows]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "purge-windows",
				Usage:       "also delete expired rate windows",
				Destination: &cmd.purge,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *MigrateCmd) run(ctx context.Context, c *cli.Command) error {
	db, err := postgres.Connect(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	cmd.log.Info("schema applied")

	if cmd.purge {
		n, err := db.PurgeExpiredWindows(ctx, time.Now())
		if err != nil {
			return err
		}
		cmd.log.Info("purged expired rate windows", zap.Int64("count", n))
	}
	return nil
}
