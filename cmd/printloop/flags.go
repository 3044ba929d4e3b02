package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/pipeline"
)

// assemblyFlags are shared by the process and estimate commands. Wait
// flags take minutes, order entries are 1-based file positions.
var assemblyFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "loops",
		Aliases: []string{"n"},
		Value:   1,
		Usage:   "Number of times the job repeats",
	},
	&cli.StringFlag{
		Name:  "order",
		Usage: "Print order for multiple files as 1-based positions, e.g. \"2,1\"",
	},
	&cli.StringFlag{
		Name:    "file-wait-min",
		Aliases: []string{"file-wait"},
		Usage:   "Dwell between files within a loop, in minutes",
	},
	&cli.StringFlag{
		Name:    "loop-wait-min",
		Aliases: []string{"loop-wait"},
		Usage:   "Dwell between loops, in minutes",
	},
	&cli.BoolFlag{
		Name:  "sweep-between-files",
		Usage: "Run the sweep pattern between files within a loop",
	},
	&cli.BoolFlag{
		Name:  "sweep-between-loops",
		Usage: "Run the sweep pattern between loops",
	},
	&cli.StringFlag{
		Name:  "sweep-file",
		Usage: "Path to a custom sweep pattern replacing the built-in one",
	},
	&cli.BoolFlag{
		Name:  "skip-homing",
		Usage: "Do not home the axes after the final sweep",
	},
}

// optionsFromFlags converts the parsed command line into assembly options.
func optionsFromFlags(cmd *cli.Command) (gcode.Options, error) {
	opts := gcode.DefaultOptions()
	opts.Loops = int(cmd.Int("loops"))
	opts.SweepBetweenFiles = cmd.Bool("sweep-between-files")
	opts.SweepBetweenLoops = cmd.Bool("sweep-between-loops")
	opts.SkipFinalHoming = cmd.Bool("skip-homing")

	if v := cmd.String("order"); v != "" {
		order, err := parseOrderFlag(v)
		if err != nil {
			return gcode.Options{}, err
		}
		opts.Order = order
	}

	var err error
	if opts.FileWait, err = parseWaitFlag("file-wait-min", cmd.String("file-wait-min")); err != nil {
		return gcode.Options{}, err
	}
	if opts.LoopWait, err = parseWaitFlag("loop-wait-min", cmd.String("loop-wait-min")); err != nil {
		return gcode.Options{}, err
	}

	if path := cmd.String("sweep-file"); path != "" {
		sweep, err := os.ReadFile(path)
		if err != nil {
			return gcode.Options{}, fmt.Errorf("failed to read sweep file: %w", err)
		}
		opts.CustomSweep = string(sweep)
	}

	return opts, nil
}

// parseOrderFlag converts "2,1" style 1-based positions to the engine's
// zero-based order.
func parseOrderFlag(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	order := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: order entry %q, want a 1-based file position",
				gcode.ErrInvalidValue, strings.TrimSpace(part))
		}
		order = append(order, n-1)
	}
	return order, nil
}

func parseWaitFlag(flag, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	minutes, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: --%s %q is not a number", gcode.ErrInvalidValue, flag, v)
	}
	return time.Duration(minutes * float64(time.Minute)), nil
}

// readInputs loads every container path given on the command line.
func readInputs(paths []string) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs = append(inputs, pipeline.Input{Name: path, Data: data})
	}
	return inputs, nil
}
