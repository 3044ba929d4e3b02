package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/loopfarm/printloop/internal/fancy"
	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/job"
	"github.com/loopfarm/printloop/internal/job/finitestate"
	"github.com/loopfarm/printloop/internal/pipeline"
)

var processCmd = &cli.Command{
	Name:      "process",
	Usage:     "Loop and combine sliced containers into one job file",
	ArgsUsage: "FILE.3mf [FILE.3mf ...]",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output path (default: looped_<first input name>)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "Log level (trace, debug, info, warn, error)",
		},
	}, assemblyFlags...),
	Action: processAction,
}

func processAction(ctx context.Context, cmd *cli.Command) error {
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

	j, err := job.New(job.SourceCLI, inputs[0].Name, slog.Default().Handler())
	if err != nil {
		return err
	}

	res, err := pipeline.ProcessTracked(ctx, j.Logger(), j, inputs, opts, gcode.DefaultLimits())
	if err != nil {
		recordFailure(j, err)
		return err
	}
	if err := j.MarkPackaged(res); err != nil {
		return err
	}

	outPath := cmd.String("output")
	if outPath == "" {
		outPath = "looped_" + filepath.Base(inputs[0].Name)
	}
	if err := os.WriteFile(outPath, res.Output, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Println(renderJobSummary(outPath, inputs, opts, res))
	return nil
}

// recordFailure moves the job to the terminal state the machine allows.
// A rejection before extraction leaves the job in created, where only
// invalid is reachable.
func recordFailure(j *job.Job, cause error) {
	if j.State() == finitestate.StateCreated {
		_ = j.MarkInvalid(cause)
		return
	}
	_ = j.MarkFailed(cause)
}

// renderJobSummary builds the tree printed after a successful run.
func renderJobSummary(
	outPath string,
	inputs []pipeline.Input,
	opts gcode.Options,
	res *pipeline.Result,
) string {
	tree := fancy.JobTree("printloop job")

	filesBranch := tree.AddBranch(fmt.Sprintf("Files (%d)", len(inputs)))
	for _, in := range inputs {
		filesBranch.Child(in.Name)
	}

	tree.AddChild(fmt.Sprintf("Options: %s", opts))
	tree.AddChild(fmt.Sprintf("Toolpath entry: %s", res.EntryName))
	tree.AddChild(fmt.Sprintf("Script size: %d bytes", res.ScriptBytes))
	estLine := formatEstimate(res.Estimate)
	if res.Estimate.Unknown {
		estLine = fancy.WarnStyle.Render(estLine)
	}
	tree.AddChild(fmt.Sprintf("Estimated runtime: %s", estLine))
	tree.AddChild(fmt.Sprintf("Output: %s", outPath))

	return tree.String()
}

// formatEstimate renders the runtime estimate for humans. Unknown
// estimates stay honest instead of printing zero.
func formatEstimate(e gcode.Estimate) string {
	if e.Unknown || e.TotalSeconds == nil {
		return "unknown (no time comments in toolpath)"
	}
	total := time.Duration(*e.TotalSeconds * float64(time.Second)).Round(time.Second)
	if e.PerLoopSeconds != nil {
		perLoop := time.Duration(*e.PerLoopSeconds * float64(time.Second)).Round(time.Second)
		return fmt.Sprintf("%s (%s per loop)", total, perLoop)
	}
	return total.String()
}
