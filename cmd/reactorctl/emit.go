package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/snowparadise/reactor/internal/config"
	"github.com/snowparadise/reactor/internal/model"
	natsclient "github.com/snowparadise/reactor/internal/nats"
	"github.com/snowparadise/reactor/pkg/logger"
)

// EmitCmd publishes an event envelope to the event stream.
type EmitCmd struct {
	cfg  *config.Config
	log  *logger.Logger
	file string
}

func NewEmitCmd(cfg *config.Config, log *logger.Logger) *EmitCmd {
	return &EmitCmd{cfg: cfg, log: log}
}

func (cmd *EmitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "emit",
		Usage:       "Publish an event envelope",
		UsageText:   "reactorctl emit [--file event.json]",
		Description: "Reads one JSON event envelope from --file or stdin and publishes it.\nA missing id or occurred_at is filled in; re-emitting the same id is de-duplicated by the stream.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to the envelope, - for stdin",
				Value:       "-",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *EmitCmd) run(ctx context.Context, c *cli.Command) error {
	var r io.Reader = os.Stdin
	if cmd.file != "-" {
		f, err := os.Open(cmd.file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read envelope: %w", err)
	}

	ev, err := parseEnvelope(data, time.Now(), func() string { return uuid.Must(uuid.NewV7()).String() })
	if err != nil {
		return err
	}

	client, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      c.String("nats-url"),
		Name:     "reactorctl",
		CAFile:   cmd.cfg.NATSCAFile,
		CertFile: cmd.cfg.NATSCertFile,
		KeyFile:  cmd.cfg.NATSKeyFile,
		Token:    cmd.cfg.NATSToken,
	}, cmd.log)
	if err != nil {
		return err
	}
	defer client.Close()

	streams := natsclient.NewStreamManager(client)
	if _, err := streams.EnsureStream(ctx); err != nil {
		return err
	}
	seq, err := streams.PublishEvent(ctx, ev)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "published %s %s at sequence %d\n", ev.Type, ev.ID, seq)
	return nil
}

var knownEventTypes = map[model.EventType]bool{
	model.EventMessageCreated:     true,
	model.EventLikeCreated:        true,
	model.EventLikeDeleted:        true,
	model.EventConversationUpdate: true,
}

// parseEnvelope decodes an envelope and fills in the id and timestamp.
func parseEnvelope(data []byte, now time.Time, newID func() string) (*model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if !knownEventTypes[ev.Type] {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.ID == "" {
		ev.ID = newID()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now.UTC()
	}
	return &ev, nil
}
