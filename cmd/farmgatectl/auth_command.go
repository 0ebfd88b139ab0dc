package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/crypto"
)

func handleAuthCommand(args []string, output io.Writer) error {
	help := CommandHelp{
		Usage: "farmgatectl auth <subcommand>",
		Subcommands: []Subcommand{
			{"gen-secret", "Print a random secret for jwt.secret"},
		},
	}
	if len(args) < 1 {
		help.Print(output)
		return ErrMissingCommand
	}
	if args[0] != "gen-secret" {
		help.Print(output)
		return fmt.Errorf("%w: auth %s", ErrUnknownCommand, args[0])
	}

	fs := flag.NewFlagSet("gen-secret", flag.ContinueOnError)
	fs.SetOutput(output)
	length := fs.Int("length", 48, "Length of the secret")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if *length < config.MinJwtSecretLength {
		return fmt.Errorf("%w: -length must be at least %d", ErrInvalidFlag, config.MinJwtSecretLength)
	}

	_, err := fmt.Fprintln(output, crypto.RandomString(*length, crypto.AlphanumericAlphabet))
	return err
}
