package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/BurntSushi/toml"
	"github.com/caasmo/farmgate/config"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz0123456789"

// writeConfig writes a sqlite configuration with a google provider and
// returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := "[db]\ndriver = \"sqlite\"\npath = \"" + filepath.ToSlash(filepath.Join(dir, "farmgate.db")) + "\"\n" +
		"[jwt]\nsecret = \"" + testSecret + "\"\n" +
		"[oauth2_providers.google]\nclient_id = \"gid\"\nclient_secret = \"gsecret\"\n"
	path := filepath.Join(dir, "farmgate.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRun_Usage(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no command", args: nil, wantErr: ErrMissingCommand},
		{name: "unknown command", args: []string{"nope"}, wantErr: ErrUnknownCommand},
		{name: "bad flag", args: []string{"-nope"}, wantErr: ErrInvalidFlag},
		{name: "help", args: []string{"help"}},
		{name: "config without subcommand", args: []string{"config"}, wantErr: ErrMissingCommand},
		{name: "unknown db subcommand", args: []string{"db", "drop"}, wantErr: ErrUnknownCommand},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tc.args, &out)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("run() error = %v, want %v", err, tc.wantErr)
			}
			if !strings.Contains(out.String(), "Usage:") {
				t.Errorf("output has no usage:\n%s", out.String())
			}
		})
	}
}

func TestConfigDump_MasksSecrets(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-config", writeConfig(t), "config", "dump"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	dump := out.String()
	for _, secret := range []string{testSecret, "gsecret"} {
		if strings.Contains(dump, secret) {
			t.Errorf("dump leaks %q", secret)
		}
	}

	var cfg config.Config
	if _, err := toml.Decode(dump, &cfg); err != nil {
		t.Fatalf("dump is not valid TOML: %v", err)
	}
	if cfg.Jwt.Secret != maskedValue {
		t.Errorf("jwt secret = %q", cfg.Jwt.Secret)
	}
	if p := cfg.Providers[config.OAuth2ProviderGoogle]; p.ClientID != "gid" || p.ClientSecret != maskedValue {
		t.Errorf("google provider = %+v", p)
	}
	if cfg.Db.Driver != config.DbDriverSqlite {
		t.Errorf("db driver = %q", cfg.Db.Driver)
	}
}

func TestMaskSecrets_KeepsOriginal(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Jwt.Secret = testSecret
	cfg.Smtp.Password = "smtp-pass"

	masked := maskSecrets(cfg)

	if masked.Smtp.Password != maskedValue || masked.Db.Dsn != "" {
		t.Errorf("masked smtp = %q, dsn = %q", masked.Smtp.Password, masked.Db.Dsn)
	}
	if cfg.Jwt.Secret != testSecret || cfg.Smtp.Password != "smtp-pass" {
		t.Error("maskSecrets modified its argument")
	}
}

func TestConfigValidate(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-config", writeConfig(t), "config", "validate"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[jwt]\nsecret = \"short\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := run(context.Background(), []string{"-config", bad, "config", "validate"}, &out)
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("run() error = %v, want %v", err, ErrConfigLoad)
	}
}

func TestConfigEncrypt_RoundTrip(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "age.key")
	if err := os.WriteFile(keyPath, []byte(identity.String()+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	sealed := filepath.Join(dir, "farmgate.toml.age")

	var out bytes.Buffer
	args := []string{"-config", writeConfig(t), "config", "encrypt", "-recipient", identity.Recipient().String(), "-out", sealed}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("encrypt error = %v", err)
	}

	raw, err := os.ReadFile(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte(testSecret)) {
		t.Fatal("encrypted file holds the secret in clear")
	}

	cfg, err := config.Load(context.Background(), sealed, keyPath)
	if err != nil {
		t.Fatalf("Load() of the encrypted file error = %v", err)
	}
	if cfg.Jwt.Secret != testSecret {
		t.Errorf("decrypted secret = %q", cfg.Jwt.Secret)
	}
}

func TestConfigEncrypt_Errors(t *testing.T) {
	path := writeConfig(t)
	testCases := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no recipient", args: []string{"-config", path, "config", "encrypt", "-out", "x.age"}, wantErr: ErrMissingFlag},
		{name: "bad recipient", args: []string{"-config", path, "config", "encrypt", "-recipient", "age1nope", "-out", filepath.Join(t.TempDir(), "x.age")}, wantErr: ErrInvalidFlag},
		{name: "already encrypted", args: []string{"-config", path, "-age-key", "k", "config", "encrypt", "-recipient", "r", "-out", "x.age"}, wantErr: ErrInvalidFlag},
		{name: "extra argument", args: []string{"-config", path, "config", "encrypt", "-recipient", "r", "-out", "x.age", "more"}, wantErr: ErrTooManyArguments},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(context.Background(), tc.args, &bytes.Buffer{})
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("run() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestDbMigrate(t *testing.T) {
	path := writeConfig(t)
	var out bytes.Buffer
	for i := 0; i < 2; i++ {
		out.Reset()
		if err := run(context.Background(), []string{"-config", path, "db", "migrate"}, &out); err != nil {
			t.Fatalf("migrate #%d error = %v", i, err)
		}
		if !strings.Contains(out.String(), "sqlite database is up to date") {
			t.Errorf("output = %q", out.String())
		}
	}
}

func TestAuthGenSecret(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"auth", "gen-secret", "-length", "40"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	secret := strings.TrimSpace(out.String())
	if len(secret) != 40 {
		t.Errorf("secret length = %d, want 40", len(secret))
	}

	err := run(context.Background(), []string{"auth", "gen-secret", "-length", "8"}, &out)
	if !errors.Is(err, ErrInvalidFlag) {
		t.Errorf("short secret error = %v, want %v", err, ErrInvalidFlag)
	}
}
