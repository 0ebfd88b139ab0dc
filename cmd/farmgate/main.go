package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/caasmo/farmgate"
)

func main() {
	configPath := flag.String("config", "", "Path to the TOML configuration file. Defaults and environment only when empty")
	ageKeyPath := flag.String("age-key", "", "Path to the age identity decrypting the configuration file")
	flag.Parse()

	_, srv, err := farmgate.New(context.Background(), *configPath, farmgate.WithAgeKeyPath(*ageKeyPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	srv.Run()
}
