package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/jokko/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		TestEmail commands.TestEmailCmd `cmd:"" help:"Send a test email through SES"`
		TestS3    commands.TestS3Cmd    `cmd:"" name:"test-s3" help:"Round-trip an object through the attachment bucket"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("jokko-cli"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
