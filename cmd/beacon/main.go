// Package main is the entrypoint for the beacon CLI.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lstn/beacon/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("beacon failed", "error", err)
		os.Exit(1)
	}
}
