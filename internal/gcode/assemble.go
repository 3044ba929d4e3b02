package gcode

import (
	"fmt"
	"strings"
	"time"
)

// Assemble builds one toolpath script from the segmented inputs: a single
// header from the first script in order, the loop block repeated
// opts.Loops times, a final sweep, the footer from the last script in
// order, and a trailing homing command unless suppressed.
//
// Within a loop block the bodies appear in the configured order; between
// consecutive bodies the per-file dwell is emitted first, then the sweep
// if enabled. Between consecutive loop blocks the between-loop dwell is
// emitted first, then the sweep if enabled. Assembly is deterministic:
// identical inputs produce byte-identical output.
func Assemble(scripts []Segmented, opts Options) (string, error) {
	if len(scripts) == 0 {
		return "", ErrEmptyInput
	}
	if err := opts.Validate(len(scripts)); err != nil {
		return "", err
	}

	order := opts.EffectiveOrder(len(scripts))
	ordered := make([]Segmented, len(order))
	for i, idx := range order {
		ordered[i] = scripts[idx]
	}

	sweep := opts.SweepText()
	block := buildLoopBlock(ordered, opts, sweep)

	var out strings.Builder
	out.WriteString(ordered[0].Header)

	for n := 1; n <= opts.Loops; n++ {
		fmt.Fprintf(&out, "\n; === LOOP %d START ===\n", n)
		out.WriteString(block)
		fmt.Fprintf(&out, "\n; === LOOP %d END ===\n", n)

		if n < opts.Loops {
			writeWait(&out, opts.LoopWait)
			if opts.SweepBetweenLoops {
				writeSweep(&out, sweep)
			}
		}
	}

	// The nozzle always ends in a known clean state, whatever the per-loop
	// sweep settings were.
	out.WriteString("\n; --- FINAL SWEEP ---\nM400\n")
	out.WriteString(sweep)

	out.WriteString(ordered[len(ordered)-1].Footer)

	if !opts.SkipFinalHoming {
		out.WriteString("\nG28 ; home all axes\n")
	}

	return out.String(), nil
}

// buildLoopBlock concatenates the ordered bodies with the per-file
// inserts. File banners are only emitted for multi-file combines, matching
// the single-file output shape.
func buildLoopBlock(ordered []Segmented, opts Options, sweep string) string {
	var b strings.Builder
	multi := len(ordered) > 1

	for i, s := range ordered {
		if multi {
			fmt.Fprintf(&b, "\n; === FILE %d: %s START ===\n", i+1, s.Source)
		}
		b.WriteString(s.Body)
		if multi {
			fmt.Fprintf(&b, "\n; === FILE %d: %s END ===\n", i+1, s.Source)
		}

		if i < len(ordered)-1 {
			writeWait(&b, opts.FileWait)
			if opts.SweepBetweenFiles {
				writeSweep(&b, sweep)
			}
		}
	}
	return b.String()
}

// writeWait emits a planner flush and a timed dwell. A zero or negative
// duration emits nothing.
func writeWait(b *strings.Builder, d time.Duration) {
	secs := int(d.Seconds())
	if secs <= 0 {
		return
	}
	b.WriteString("\n; --- WAIT ---\nM400\n")
	fmt.Fprintf(b, "G4 S%d ; dwell %s\n", secs, d)
}

func writeSweep(b *strings.Builder, sweep string) {
	b.WriteString("\n; --- SWEEP ---\n")
	b.WriteString(sweep)
}
