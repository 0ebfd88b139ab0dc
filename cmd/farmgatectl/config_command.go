package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/BurntSushi/toml"
	"github.com/caasmo/farmgate/config"
)

const maskedValue = "********"

func handleConfigCommand(ctx context.Context, g globals, args []string, output io.Writer) error {
	help := CommandHelp{
		Usage: "farmgatectl [global options] config <subcommand>",
		Subcommands: []Subcommand{
			{"dump", "Print the effective configuration, secrets masked"},
			{"validate", "Load and validate the configuration"},
			{"encrypt", "Encrypt the configuration file with age"},
		},
	}
	if len(args) < 1 {
		help.Print(output)
		return ErrMissingCommand
	}

	switch args[0] {
	case "dump":
		cfg, err := g.loadConfig(ctx)
		if err != nil {
			return err
		}
		return dumpConfig(output, cfg)

	case "validate":
		if _, err := g.loadConfig(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(output, "configuration is valid")
		return err

	case "encrypt":
		return handleEncryptCommand(ctx, g, args[1:], output)

	default:
		help.Print(output)
		return fmt.Errorf("%w: config %s", ErrUnknownCommand, args[0])
	}
}

// dumpConfig writes cfg as TOML. Defaults and environment overrides are
// included.
func dumpConfig(w io.Writer, cfg *config.Config) error {
	if err := toml.NewEncoder(w).Encode(maskSecrets(cfg)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigMarshal, err)
	}
	return nil
}

// maskSecrets returns a copy of cfg with every credential replaced.
func maskSecrets(cfg *config.Config) *config.Config {
	c := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = maskedValue
		}
	}

	mask(&c.Jwt.Secret)
	mask(&c.Db.Dsn)
	mask(&c.Smtp.Password)
	mask(&c.Notify.Discord.WebhookURL)

	c.Providers = make(map[string]config.OAuth2Provider, len(cfg.Providers))
	for name, p := range cfg.Providers {
		mask(&p.ClientSecret)
		c.Providers[name] = p
	}
	return &c
}

func handleEncryptCommand(ctx context.Context, g globals, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.SetOutput(output)
	recipient := fs.String("recipient", "", "age public key (age1...) of the server")
	outPath := fs.String("out", "", "Path of the encrypted file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %v", ErrTooManyArguments, fs.Args())
	}
	if *recipient == "" || *outPath == "" || g.configPath == "" {
		return fmt.Errorf("%w: -config, -recipient and -out are required", ErrMissingFlag)
	}
	if g.ageKeyPath != "" {
		return fmt.Errorf("%w: -age-key given, the configuration is already encrypted", ErrInvalidFlag)
	}

	// an invalid configuration is refused before it is sealed
	if _, err := g.loadConfig(ctx); err != nil {
		return err
	}

	r, err := age.ParseX25519Recipient(*recipient)
	if err != nil {
		return fmt.Errorf("%w: invalid recipient: %v", ErrInvalidFlag, err)
	}
	plain, err := os.ReadFile(g.configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}

	sealed, err := encryptConfig(plain, r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, sealed, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	_, err = fmt.Fprintf(output, "encrypted configuration written to %s\n", *outPath)
	return err
}

func encryptConfig(plain []byte, recipients ...age.Recipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return buf.Bytes(), nil
}
