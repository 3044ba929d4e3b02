// Package pipeline runs one processing request end to end: extract the
// toolpath from each container, segment, assemble and estimate, enforce
// the safety ceilings, and repack the result into the first container.
// Everything is request-scoped; independent requests share no state.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/threemf"
)

// PreviewLimit bounds the read-only prefix of the assembled script exposed
// for inspection.
const PreviewLimit = 2000

// Input is one uploaded job container.
type Input struct {
	Name string
	Data []byte
}

// Result is the outcome of a successful run. The output container is
// produced fresh per request and never mutated afterwards.
type Result struct {
	// Output is the repacked container: the first input with its toolpath
	// entry replaced by the assembled script.
	Output []byte

	// EntryName is the archive path of the replaced toolpath entry.
	EntryName string

	// Preview is the first PreviewLimit characters of the assembled script.
	Preview string

	// ScriptBytes is the full size of the assembled script.
	ScriptBytes int64

	// Summary is a one-line human-readable schedule description.
	Summary string

	Estimate gcode.Estimate
}

// summarize renders the schedule in one line, including the estimate
// when it is known.
func summarize(fileCount int, opts gcode.Options, est gcode.Estimate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d file(s) x %d loop(s)", fileCount, opts.Loops)
	if opts.FileWait > 0 {
		fmt.Fprintf(&b, ", %s between files", opts.FileWait)
	}
	if opts.LoopWait > 0 {
		fmt.Fprintf(&b, ", %s between loops", opts.LoopWait)
	}
	if est.Unknown || est.TotalSeconds == nil {
		b.WriteString("; estimated runtime unknown")
	} else {
		total := time.Duration(*est.TotalSeconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(&b, "; estimated runtime %s", total)
	}
	return b.String()
}

// Tracker observes pipeline stage starts, so a caller can surface
// progress (for example through a job state machine). Stages run in the
// order the methods are declared; a tracker error aborts the run.
type Tracker interface {
	BeginExtraction() error
	BeginAssembly() error
}

type nopTracker struct{}

func (nopTracker) BeginExtraction() error { return nil }
func (nopTracker) BeginAssembly() error   { return nil }

// Process runs the full pipeline. It fails without partial output: the
// container is only repacked after assembly and both limit checks have
// succeeded.
func Process(
	ctx context.Context,
	logger *slog.Logger,
	inputs []Input,
	opts gcode.Options,
	limits gcode.Limits,
) (*Result, error) {
	return ProcessTracked(ctx, logger, nopTracker{}, inputs, opts, limits)
}

// ProcessTracked is Process with stage notifications.
func ProcessTracked(
	ctx context.Context,
	logger *slog.Logger,
	tracker Tracker,
	inputs []Input,
	opts gcode.Options,
	limits gcode.Limits,
) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = nopTracker{}
	}
	if len(inputs) == 0 {
		return nil, gcode.ErrEmptyInput
	}

	// Pre-checks run before any expensive work.
	if err := limits.CheckRequest(opts, len(inputs)); err != nil {
		return nil, err
	}
	if err := opts.Validate(len(inputs)); err != nil {
		return nil, err
	}

	if err := tracker.BeginExtraction(); err != nil {
		return nil, err
	}
	scripts, firstEntry, err := segmentInputs(logger, inputs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tracker.BeginAssembly(); err != nil {
		return nil, err
	}

	// Assembly and estimation are pure reads of the same segmented inputs,
	// so they run concurrently; both complete before the post-check.
	var (
		wg        sync.WaitGroup
		assembled string
		asmErr    error
		estimate  gcode.Estimate
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		assembled, asmErr = gcode.Assemble(scripts, opts)
	}()
	go func() {
		defer wg.Done()
		estimate = gcode.EstimateRuntime(scripts, opts)
	}()
	wg.Wait()

	if asmErr != nil {
		return nil, asmErr
	}
	if err := limits.CheckOutput(int64(len(assembled))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("Toolpath assembled",
		"files", len(inputs),
		"loops", opts.Loops,
		"script_bytes", len(assembled))

	first := inputs[0]
	var out bytes.Buffer
	err = threemf.Repack(
		bytes.NewReader(first.Data),
		int64(len(first.Data)),
		&out,
		firstEntry,
		assembled,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to repack %s: %w", first.Name, err)
	}

	return &Result{
		Output:      out.Bytes(),
		EntryName:   firstEntry,
		Preview:     preview(assembled),
		ScriptBytes: int64(len(assembled)),
		Summary:     summarize(len(inputs), opts, estimate),
		Estimate:    estimate,
	}, nil
}

// EstimateOnly runs extraction, segmentation, and estimation without
// assembling or repacking.
func EstimateOnly(
	logger *slog.Logger,
	inputs []Input,
	opts gcode.Options,
	limits gcode.Limits,
) (gcode.Estimate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(inputs) == 0 {
		return gcode.Estimate{}, gcode.ErrEmptyInput
	}
	if err := limits.CheckRequest(opts, len(inputs)); err != nil {
		return gcode.Estimate{}, err
	}
	if err := opts.Validate(len(inputs)); err != nil {
		return gcode.Estimate{}, err
	}

	scripts, _, err := segmentInputs(logger, inputs)
	if err != nil {
		return gcode.Estimate{}, err
	}
	return gcode.EstimateRuntime(scripts, opts), nil
}

// segmentInputs extracts and segments every container. The returned entry
// name is the toolpath path inside the first container, where the
// assembled script will be written back.
func segmentInputs(logger *slog.Logger, inputs []Input) ([]gcode.Segmented, string, error) {
	scripts := make([]gcode.Segmented, 0, len(inputs))
	firstEntry := ""

	for i, in := range inputs {
		tp, err := threemf.ExtractToolpath(bytes.NewReader(in.Data), int64(len(in.Data)))
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", in.Name, err)
		}
		if i == 0 {
			firstEntry = tp.Name
		}

		seg, err := gcode.Segment(in.Name, tp.Text)
		if err != nil {
			return nil, "", err
		}
		scripts = append(scripts, seg)

		logger.Debug("Toolpath segmented",
			"source", in.Name,
			"entry", tp.Name,
			"body_bytes", len(seg.Body))
	}

	return scripts, firstEntry, nil
}

func preview(script string) string {
	if len(script) <= PreviewLimit {
		return script
	}
	return script[:PreviewLimit]
}
