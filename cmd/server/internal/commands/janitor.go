package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/jokko/internal/janitor"
	"github.com/wolfeidau/jokko/internal/logger"
)

type JanitorCmd struct {
	Schedule string     `help:"cron schedule, e.g. \"@every 1h\"; runs once when empty" default:"" env:"JOKKO_JANITOR_SCHEDULE"`
	Store    StoreFlags `embed:""`
}

func (c *JanitorCmd) Validate() error {
	if c.Schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	return nil
}

func (c *JanitorCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	if c.Store.StoreType != "postgres" {
		return errors.New("the janitor needs a shared store (--store-type=postgres)")
	}

	st, err := openStores(ctx, c.Store, false)
	if err != nil {
		return err
	}
	defer st.close()

	j := janitor.New(janitor.Stores{Sessions: st.sessions, PasswordResets: st.resets})

	if c.Schedule == "" {
		_, err := j.Purge(ctx)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScheduled(ctx, log, c.Schedule, func() {
		if _, err := j.Purge(ctx); err != nil {
			log.Error().Err(err).Msg("Purge failed")
		}
	})
}

// runScheduled runs fn on schedule until ctx is done, then waits for a running fn to finish.
func runScheduled(ctx context.Context, log zerolog.Logger, schedule string, fn func()) error {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := scheduler.AddFunc(schedule, fn); err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}

	log.Info().Str("schedule", schedule).Msg("Janitor scheduled")
	scheduler.Start()

	<-ctx.Done()

	log.Info().Msg("Stopping janitor")
	<-scheduler.Stop().Done()
	return nil
}
