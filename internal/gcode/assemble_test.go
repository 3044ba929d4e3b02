package gcode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentedFixture(t *testing.T, source string) Segmented {
	t.Helper()
	seg, err := Segment(source, sampleScript())
	require.NoError(t, err)
	return seg
}

// secondBody is a distinct print body for multi-file tests.
func secondFixture(t *testing.T) Segmented {
	t.Helper()
	body := strings.ReplaceAll(sampleBody, "X1", "X5")
	seg, err := Segment("second.gcode", sampleHeader+body+sampleFooter)
	require.NoError(t, err)
	return seg
}

func TestAssemble_SingleFile(t *testing.T) {
	t.Parallel()

	seg := segmentedFixture(t, "cube.gcode")

	t.Run("loop count repeats the body exactly", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Loops = 2

		out, err := Assemble([]Segmented{seg}, opts)
		require.NoError(t, err)

		assert.Equal(t, 2, strings.Count(out, seg.Body))
		assert.Equal(t, 1, strings.Count(out, seg.Header), "exactly one preamble")
		assert.Equal(t, 1, strings.Count(out, seg.Footer), "exactly one shutdown")
		assert.Contains(t, out, "; === LOOP 1 START ===")
		assert.Contains(t, out, "; === LOOP 2 END ===")
	})

	t.Run("deterministic output", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Loops = 3
		opts.LoopWait = time.Minute
		opts.SweepBetweenLoops = true

		a, err := Assemble([]Segmented{seg}, opts)
		require.NoError(t, err)
		b, err := Assemble([]Segmented{seg}, opts)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("final sweep always present", func(t *testing.T) {
		out, err := Assemble([]Segmented{seg}, DefaultOptions())
		require.NoError(t, err)

		assert.Contains(t, out, "; --- FINAL SWEEP ---")
		assert.Contains(t, out, "; --- AUTO SWEEP START ---")
	})

	t.Run("homing appended after footer", func(t *testing.T) {
		out, err := Assemble([]Segmented{seg}, DefaultOptions())
		require.NoError(t, err)
		assert.Contains(t, out, "G28 ; home all axes")
	})

	t.Run("skip final homing", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SkipFinalHoming = true

		out, err := Assemble([]Segmented{seg}, opts)
		require.NoError(t, err)
		assert.NotContains(t, out, "G28 ; home all axes")
	})

	t.Run("between-loop wait before sweep", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Loops = 2
		opts.LoopWait = 2 * time.Minute
		opts.SweepBetweenLoops = true

		out, err := Assemble([]Segmented{seg}, opts)
		require.NoError(t, err)

		waitIdx := strings.Index(out, "G4 S120")
		sweepIdx := strings.Index(out, "; --- SWEEP ---")
		require.GreaterOrEqual(t, waitIdx, 0)
		require.GreaterOrEqual(t, sweepIdx, 0)
		assert.Less(t, waitIdx, sweepIdx, "dwell must precede the sweep")
	})

	t.Run("custom sweep replaces the default everywhere", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Loops = 2
		opts.SweepBetweenLoops = true
		opts.CustomSweep = "; my sweep\nG1 X0 Y0 F6000\n"

		out, err := Assemble([]Segmented{seg}, opts)
		require.NoError(t, err)

		assert.NotContains(t, out, "; --- AUTO SWEEP START ---")
		assert.Equal(t, 2, strings.Count(out, "; my sweep"),
			"one between loops, one final")
	})
}

func TestAssemble_MultiFile(t *testing.T) {
	t.Parallel()

	first := segmentedFixture(t, "first.gcode")
	second := secondFixture(t)

	t.Run("reorder places second body first", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Order = []int{1, 0}

		out, err := Assemble([]Segmented{first, second}, opts)
		require.NoError(t, err)

		require.Contains(t, out, second.Body)
		require.Contains(t, out, first.Body)
		assert.Less(t, strings.Index(out, second.Body), strings.Index(out, first.Body))
	})

	t.Run("header from first in order, footer from last", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Order = []int{1, 0}

		out, err := Assemble([]Segmented{first, second}, opts)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(out, second.Header))
		assert.Contains(t, out, "; === FILE 1: second.gcode START ===")
		assert.Contains(t, out, "; === FILE 2: first.gcode START ===")
	})

	t.Run("per-file wait emitted between bodies", func(t *testing.T) {
		opts := DefaultOptions()
		opts.FileWait = 90 * time.Second

		out, err := Assemble([]Segmented{first, second}, opts)
		require.NoError(t, err)
		assert.Contains(t, out, "G4 S90")
	})

	t.Run("sweep between files", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SweepBetweenFiles = true

		out, err := Assemble([]Segmented{first, second}, opts)
		require.NoError(t, err)

		// One between the two files plus the unconditional final pass.
		assert.Equal(t, 2, strings.Count(out, "; --- AUTO SWEEP START ---"))
	})
}

func TestAssemble_Errors(t *testing.T) {
	t.Parallel()

	seg := segmentedFixture(t, "cube.gcode")

	tests := []struct {
		name    string
		scripts []Segmented
		opts    func() Options
		check   func(t *testing.T, err error)
	}{
		{
			name:    "empty input",
			scripts: nil,
			opts:    DefaultOptions,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyInput)
			},
		},
		{
			name:    "order index out of range",
			scripts: []Segmented{seg},
			opts: func() Options {
				o := DefaultOptions()
				o.Order = []int{1}
				return o
			},
			check: func(t *testing.T, err error) {
				var orderErr *InvalidOrderError
				require.ErrorAs(t, err, &orderErr)
				assert.False(t, orderErr.Duplicate)
			},
		},
		{
			name:    "duplicate order index",
			scripts: []Segmented{seg, seg},
			opts: func() Options {
				o := DefaultOptions()
				o.Order = []int{0, 0}
				return o
			},
			check: func(t *testing.T, err error) {
				var orderErr *InvalidOrderError
				require.ErrorAs(t, err, &orderErr)
				assert.True(t, orderErr.Duplicate)
			},
		},
		{
			name:    "zero loops",
			scripts: []Segmented{seg},
			opts: func() Options {
				return Options{Loops: 0}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidValue)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.scripts, tt.opts())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
