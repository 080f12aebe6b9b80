package main

import (
	"os"

	"github.com/GabrielNunesIT/log-indexer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
