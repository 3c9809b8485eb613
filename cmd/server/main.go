package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/jokko/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode." env:"JOKKO_DEBUG"`
		Version kong.VersionFlag
		Server  commands.ServerCmd  `cmd:"" help:"Start the server (website + API)"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply database migrations"`
		Seed    commands.SeedCmd    `cmd:"" help:"Load demo organizations and users"`
		Janitor commands.JanitorCmd `cmd:"" help:"Purge expired sessions and password reset tokens"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("jokko-server"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
