package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/loopfarm/printloop/internal/gcode"
)

// runOptions parses args through the shared assembly flags and returns
// what optionsFromFlags produced.
func runOptions(t *testing.T, args ...string) (gcode.Options, error) {
	t.Helper()

	var (
		opts     gcode.Options
		parseErr error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: assemblyFlags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, parseErr = optionsFromFlags(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return opts, parseErr
}

func TestOptionsFromFlags(t *testing.T) {
	t.Parallel()

	t.Run("defaults are single pass", func(t *testing.T) {
		t.Parallel()
		opts, err := runOptions(t)
		require.NoError(t, err)
		assert.Equal(t, gcode.DefaultOptions(), opts)
	})

	t.Run("full flag set", func(t *testing.T) {
		t.Parallel()
		opts, err := runOptions(t,
			"--loops", "4",
			"--order", "2,1",
			"--file-wait-min", "1.5",
			"--loop-wait-min", "2",
			"--sweep-between-files",
			"--sweep-between-loops",
			"--skip-homing",
		)
		require.NoError(t, err)

		assert.Equal(t, 4, opts.Loops)
		assert.Equal(t, []int{1, 0}, opts.Order)
		assert.Equal(t, 90*time.Second, opts.FileWait)
		assert.Equal(t, 2*time.Minute, opts.LoopWait)
		assert.True(t, opts.SweepBetweenFiles)
		assert.True(t, opts.SweepBetweenLoops)
		assert.True(t, opts.SkipFinalHoming)
	})

	t.Run("sweep file is read", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "sweep.gcode")
		require.NoError(t, os.WriteFile(path, []byte("G1 X0 Y0 F6000\n"), 0o644))

		opts, err := runOptions(t, "--sweep-file", path)
		require.NoError(t, err)
		assert.Equal(t, "G1 X0 Y0 F6000\n", opts.CustomSweep)
	})

	t.Run("missing sweep file", func(t *testing.T) {
		t.Parallel()
		_, err := runOptions(t, "--sweep-file", filepath.Join(t.TempDir(), "nope.gcode"))
		require.Error(t, err)
	})

	t.Run("bad order entry", func(t *testing.T) {
		t.Parallel()
		_, err := runOptions(t, "--order", "0,1")
		require.Error(t, err)
		assert.ErrorIs(t, err, gcode.ErrInvalidValue)
	})

	t.Run("bad wait value", func(t *testing.T) {
		t.Parallel()
		_, err := runOptions(t, "--file-wait-min", "soon")
		require.Error(t, err)
		assert.ErrorIs(t, err, gcode.ErrInvalidValue)
	})
}

func TestFormatEstimate(t *testing.T) {
	t.Parallel()

	seconds := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		estimate gcode.Estimate
		want     string
	}{
		{
			name:     "unknown",
			estimate: gcode.Estimate{Unknown: true},
			want:     "unknown (no time comments in toolpath)",
		},
		{
			name: "total with per loop",
			estimate: gcode.Estimate{
				PerLoopSeconds: seconds(600),
				TotalSeconds:   seconds(1920),
			},
			want: "32m0s (10m0s per loop)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatEstimate(tt.estimate))
		})
	}
}
