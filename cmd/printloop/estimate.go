package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/pipeline"
)

var estimateCmd = &cli.Command{
	Name:      "estimate",
	Usage:     "Estimate the total runtime without writing a job file",
	ArgsUsage: "FILE.3mf [FILE.3mf ...]",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Value: "warn",
			Usage: "Log level (trace, debug, info, warn, error)",
		},
	}, assemblyFlags...),
	Action: estimateAction,
}

func estimateAction(ctx context.Context, cmd *cli.Command) error {
	SetupLogger(cmd.String("log-level"))

	if cmd.Args().Len() < 1 {
		return fmt.Errorf("at least one container path required")
	}

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}
	inputs, err := readInputs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	estimate, err := pipeline.EstimateOnly(nil, inputs, opts, gcode.DefaultLimits())
	if err != nil {
		return err
	}

	fmt.Printf("Estimated runtime: %s\n", formatEstimate(estimate))
	return nil
}
