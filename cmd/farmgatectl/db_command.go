package main

import (
	"context"
	"fmt"
	"io"

	"github.com/caasmo/farmgate"
)

func handleDbCommand(ctx context.Context, g globals, args []string, output io.Writer) error {
	help := CommandHelp{
		Usage: "farmgatectl [global options] db <subcommand>",
		Subcommands: []Subcommand{
			{"migrate", "Apply pending migrations to the configured database"},
		},
	}
	if len(args) < 1 {
		help.Print(output)
		return ErrMissingCommand
	}
	if args[0] != "migrate" {
		help.Print(output)
		return fmt.Errorf("%w: db %s", ErrUnknownCommand, args[0])
	}

	cfg, err := g.loadConfig(ctx)
	if err != nil {
		return err
	}
	d, err := farmgate.OpenDb(ctx, cfg.Db)
	if err != nil {
		return err
	}
	if c, ok := d.(io.Closer); ok {
		defer c.Close()
	}

	_, err = fmt.Fprintf(output, "%s database is up to date\n", cfg.Db.Driver)
	return err
}
