// Package main is the entry point for the priceconverter command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/yelinaung/priceconverter/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("priceconverter %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	runner := &cli.Runner{
		Version: version,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	code := runner.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
