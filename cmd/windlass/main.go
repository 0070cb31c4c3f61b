// Package main provides the windlass command line entry point.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/windlass-io/windlass/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "windlass",
		Usage:                 "Workflow execution engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			APICommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("main").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
