package commands

import (
	"context"
	"errors"

	"github.com/wolfeidau/jokko/internal/logger"
)

type MigrateCmd struct {
	Postgres PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	if c.Postgres.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or DATABASE_URL)")
	}

	st, err := openStores(ctx, StoreFlags{StoreType: "postgres", Postgres: c.Postgres}, true)
	if err != nil {
		return err
	}
	defer st.close()

	log.Info().Msg("Migrations applied")
	return nil
}
