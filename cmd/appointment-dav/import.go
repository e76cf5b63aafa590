package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/httpserver"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/pkg/ical"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load .ics files into an account, one appointment per file.",
		ArgsUsage: "<file.ics>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "account id to import into", Required: true},
			&cli.BoolFlag{Name: "dry-run", Usage: "decode files without writing them"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("usage: appointment-dav import --account <id> <file.ics>...")
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			logger = logger.With().Str("component", "import").Logger()

			store, err := httpserver.OpenStore(c.Context, cfg, logger)
			if err != nil {
				return fmt.Errorf("storage init: %w", err)
			}
			defer store.Close()

			imp := newImporter(cfg, store, logger)
			imp.dryRun = c.Bool("dry-run")
			for _, path := range c.Args().Slice() {
				if err := imp.importFile(c.Context, c.String("account"), path); err != nil {
					return err
				}
			}
			logger.Info().Int("files", c.NArg()).Bool("dry_run", imp.dryRun).Msg("import finished")
			return nil
		},
	}
}

type importer struct {
	cfg    *config.Config
	store  storage.EventStore
	codec  *ical.Codec
	logger zerolog.Logger
	now    func() time.Time
	dryRun bool
}

func newImporter(cfg *config.Config, store storage.EventStore, logger zerolog.Logger) *importer {
	return &importer{
		cfg:   cfg,
		store: store,
		codec: &ical.Codec{
			ProdID:    cfg.ICS.BuildProdID(),
			UIDDomain: cfg.ICS.UIDDomain,
			Location:  cfg.Location(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// importFile stores path under the appointment id taken from its file name,
// so appointment-42.ics becomes appointment 42.
func (imp *importer) importFile(ctx context.Context, accountID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	id := common.EventIDFromFile(filepath.Base(path))
	if !common.SafeSegment(id) {
		return fmt.Errorf("%s: cannot derive an appointment id", path)
	}

	ev, fields := imp.codec.Decode(data, id)
	if !fields.Has(ical.FieldEvent) {
		return fmt.Errorf("%s: no VEVENT found", path)
	}
	if !fields.Has(ical.FieldStart) {
		return fmt.Errorf("%s: DTSTART missing or unreadable", path)
	}
	// seed files are not edits in progress: no DTEND means the default length
	if !fields.Has(ical.FieldEnd) || !ev.End.After(ev.Start) {
		ev.End = ev.Start.Add(imp.cfg.ICS.DefaultDuration)
	}

	existing, err := imp.store.GetEvent(ctx, accountID, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		ev.LastModified = storage.NextModified(time.Time{}, imp.now())
		ev.Created = ev.LastModified
		ev.Organizer = imp.cfg.Calendar.Organizer
	case err != nil:
		return fmt.Errorf("%s: %w", path, err)
	default:
		ev.Created = existing.Created
		ev.LastModified = storage.NextModified(existing.LastModified, imp.now())
		ev.Organizer = existing.Organizer
	}

	msg := "would import"
	if !imp.dryRun {
		if err := imp.store.UpsertEvent(ctx, accountID, ev); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		msg = "imported"
	}
	imp.logger.Info().Str("account", accountID).Str("event", id).Time("start", ev.Start).Msg(msg)
	return nil
}
