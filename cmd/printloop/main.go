package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:    "printloop",
		Version: Version,
		Usage:   "Loop and combine sliced 3MF job containers for unattended reprints",
		Commands: []*cli.Command{
			processCmd,
			estimateCmd,
			serveCmd,
			validateCmd,
			versionCmd,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
