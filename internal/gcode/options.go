package gcode

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Options is the immutable assembly configuration: how many times the loop
// block repeats, the file ordering, the dwell and sweep policy, and the
// homing behavior. Zero value plus Loops=1 is a valid single-pass request.
type Options struct {
	// Loops is the number of times the loop block is repeated. Must be >= 1.
	Loops int

	// Order lists the zero-based input indices in the desired print order.
	// Empty means natural order. Must be a permutation: no duplicates, all
	// indices in range.
	Order []int

	// FileWait is the dwell inserted between consecutive files inside a
	// loop block. Zero disables it.
	FileWait time.Duration

	// LoopWait is the dwell inserted between consecutive loop blocks.
	LoopWait time.Duration

	SweepBetweenFiles bool
	SweepBetweenLoops bool

	// CustomSweep overrides DefaultSweep at every insertion point,
	// including the unconditional final sweep. Empty means the default.
	CustomSweep string

	// SkipFinalHoming suppresses the trailing G28 after the footer.
	SkipFinalHoming bool
}

// DefaultOptions returns a single-pass configuration with no inserts.
func DefaultOptions() Options {
	return Options{Loops: 1}
}

// SweepText returns the active sweep pattern.
func (o Options) SweepText() string {
	if o.CustomSweep != "" {
		return o.CustomSweep
	}
	return DefaultSweep
}

// Validate checks the configuration against the number of supplied
// scripts. Limit ceilings are enforced separately by Limits.
func (o Options) Validate(fileCount int) error {
	var errs []error

	if o.Loops < 1 {
		errs = append(errs, fmt.Errorf("%w: loop count must be at least 1, got %d",
			ErrInvalidValue, o.Loops))
	}
	if o.FileWait < 0 {
		errs = append(errs, fmt.Errorf("%w: per-file wait must not be negative, got %s",
			ErrInvalidValue, o.FileWait))
	}
	if o.LoopWait < 0 {
		errs = append(errs, fmt.Errorf("%w: between-loop wait must not be negative, got %s",
			ErrInvalidValue, o.LoopWait))
	}
	if err := o.validateOrder(fileCount); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (o Options) validateOrder(fileCount int) error {
	if len(o.Order) == 0 {
		return nil
	}
	if len(o.Order) != fileCount {
		return fmt.Errorf("%w: order lists %d entries for %d files",
			ErrInvalidValue, len(o.Order), fileCount)
	}
	seen := make(map[int]bool, len(o.Order))
	for _, idx := range o.Order {
		if idx < 0 || idx >= fileCount {
			return &InvalidOrderError{Index: idx, FileCount: fileCount}
		}
		if seen[idx] {
			return &InvalidOrderError{Index: idx, FileCount: fileCount, Duplicate: true}
		}
		seen[idx] = true
	}
	return nil
}

// EffectiveOrder returns the configured permutation, or the natural order
// when none was set.
func (o Options) EffectiveOrder(fileCount int) []int {
	if len(o.Order) == fileCount && len(o.Order) > 0 {
		out := make([]int, fileCount)
		copy(out, o.Order)
		return out
	}
	out := make([]int, fileCount)
	for i := range out {
		out[i] = i
	}
	return out
}

// String returns a concise one-line summary of the configuration.
func (o Options) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loops: %d", o.Loops)
	if len(o.Order) > 0 {
		fmt.Fprintf(&b, ", Order: %v", o.Order)
	}
	if o.FileWait > 0 {
		fmt.Fprintf(&b, ", FileWait: %s", o.FileWait)
	}
	if o.LoopWait > 0 {
		fmt.Fprintf(&b, ", LoopWait: %s", o.LoopWait)
	}
	if o.SweepBetweenFiles {
		b.WriteString(", sweep between files")
	}
	if o.SweepBetweenLoops {
		b.WriteString(", sweep between loops")
	}
	if o.CustomSweep != "" {
		fmt.Fprintf(&b, ", custom sweep (%d bytes)", len(o.CustomSweep))
	}
	if o.SkipFinalHoming {
		b.WriteString(", skip final homing")
	}
	return b.String()
}
