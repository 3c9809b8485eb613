package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/jokko/internal/logger"
	"github.com/wolfeidau/jokko/internal/seed"
)

type SeedCmd struct {
	Fixture    string     `help:"YAML fixture to load instead of the built-in demo data" type:"existingfile" env:"JOKKO_SEED_FIXTURE"`
	BcryptCost int        `help:"bcrypt cost for seeded passwords" default:"10" env:"JOKKO_BCRYPT_COST"`
	Store      StoreFlags `embed:""`
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	fixture, err := c.loadFixture()
	if err != nil {
		return err
	}

	if c.Store.StoreType == "memory" {
		log.Warn().Msg("Seeding the in-memory store only checks the fixture, nothing is persisted")
	}

	st, err := openStores(ctx, c.Store, false)
	if err != nil {
		return err
	}
	defer st.close()

	summary, err := seed.NewLoader(st.users, st.organizations, c.BcryptCost).Load(ctx, fixture)
	if err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}

	log.Info().
		Int("users", summary.Users).
		Int("organizations", summary.Organizations).
		Int("memberships", summary.Memberships).
		Msg("Seed complete")
	return nil
}

func (c *SeedCmd) loadFixture() (*seed.Fixture, error) {
	if c.Fixture == "" {
		return seed.Demo()
	}

	f, err := os.Open(c.Fixture)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return seed.Parse(f)
}
