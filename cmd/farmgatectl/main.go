// Command farmgatectl manages farmgate deployments: configuration files,
// database migrations and secrets.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/caasmo/farmgate/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the options shared by every command.
type globals struct {
	configPath string
	ageKeyPath string
}

// loadConfig reads the configuration the server would run with.
func (g globals) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, g.configPath, g.ageKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("farmgatectl", flag.ContinueOnError)
	fs.SetOutput(output)

	var g globals
	fs.StringVar(&g.configPath, "config", "", "Path to the TOML configuration file")
	fs.StringVar(&g.ageKeyPath, "age-key", "", "Path to the age identity decrypting the configuration file")

	help := CommandHelp{
		Usage:       "farmgatectl [global options] <command> [command options]",
		Description: "Manage a farmgate deployment.",
		Subcommands: []Subcommand{
			{"config", "Dump, validate or encrypt the configuration"},
			{"db", "Migrate the database"},
			{"auth", "Generate secrets"},
			{"help", "Show this help"},
		},
		Options: fs,
		Examples: []string{
			"farmgatectl -config farmgate.toml config dump",
			"farmgatectl -config farmgate.toml config encrypt -recipient age1... -out farmgate.toml.age",
			"farmgatectl -config farmgate.toml.age -age-key age.key db migrate",
			"farmgatectl auth gen-secret",
		},
	}
	fs.Usage = func() { help.Print(output) }

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}

	cmdArgs := fs.Args()
	if len(cmdArgs) < 1 {
		fs.Usage()
		return ErrMissingCommand
	}

	command, commandArgs := cmdArgs[0], cmdArgs[1:]
	switch command {
	case "config":
		return handleConfigCommand(ctx, g, commandArgs, output)
	case "db":
		return handleDbCommand(ctx, g, commandArgs, output)
	case "auth":
		return handleAuthCommand(commandArgs, output)
	case "help":
		fs.Usage()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}
