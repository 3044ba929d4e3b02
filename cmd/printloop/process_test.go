package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/job"
	"github.com/loopfarm/printloop/internal/job/finitestate"
	"github.com/loopfarm/printloop/internal/pipeline"
)

// writeFixtureContainer creates a minimal sliced 3MF on disk.
func writeFixtureContainer(t *testing.T, dir, name string) string {
	t.Helper()

	var script strings.Builder
	script.WriteString(";TIME:600\n;LAYER:0\n")
	for i := range 12 {
		fmt.Fprintf(&script, "G1 X%d.0 Y%d.0 E%d.5 F1800\n", i, i+1, i)
	}
	script.WriteString("M104 S0\nM140 S0\nM84\n")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	model, err := zw.Create("3D/3dmodel.model")
	require.NoError(t, err)
	_, err = model.Write([]byte("<model/>"))
	require.NoError(t, err)
	entry, err := zw.Create("Metadata/plate_1.gcode")
	require.NoError(t, err)
	_, err = entry.Write([]byte(script.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name: "printloop",
		Commands: []*cli.Command{
			processCmd,
			estimateCmd,
		},
	}
	return app.Run(context.Background(), append([]string{"printloop"}, args...))
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFixtureContainer(t, dir, "benchy.3mf")
	output := filepath.Join(dir, "looped.3mf")

	err := runApp(t, "process", "--loops", "2", "--log-level", "error", "-o", output, input)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := false
	for _, f := range zr.File {
		if f.Name != "Metadata/plate_1.gcode" {
			continue
		}
		found = true
		rc, err := f.Open()
		require.NoError(t, err)
		script := new(bytes.Buffer)
		_, err = script.ReadFrom(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Contains(t, script.String(), "; === LOOP 2 START ===")
		assert.Contains(t, script.String(), "G28 ; home all axes")
	}
	assert.True(t, found, "toolpath entry missing from output container")
}

func TestProcessCommand_NoArgs(t *testing.T) {
	err := runApp(t, "process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one container path required")
}

func TestRecordFailure(t *testing.T) {
	t.Parallel()

	newJob := func(t *testing.T) *job.Job {
		t.Helper()
		j, err := job.New(job.SourceCLI, "cube.3mf", slog.NewTextHandler(io.Discard, nil))
		require.NoError(t, err)
		return j
	}

	t.Run("pre-check rejection marks the job invalid", func(t *testing.T) {
		t.Parallel()
		j := newJob(t)

		cause := errors.New("loops over the ceiling")
		recordFailure(j, cause)

		assert.Equal(t, finitestate.StateInvalid, j.State())
		assert.Equal(t, cause, j.Err())
	})

	t.Run("mid-pipeline failure marks the job failed", func(t *testing.T) {
		t.Parallel()
		j := newJob(t)
		require.NoError(t, j.BeginExtraction())

		cause := errors.New("structure not recognized")
		recordFailure(j, cause)

		assert.Equal(t, finitestate.StateFailed, j.State())
		assert.Equal(t, cause, j.Err())
	})
}

func TestRenderJobSummary_UnknownEstimate(t *testing.T) {
	t.Parallel()

	inputs := []pipeline.Input{{Name: "cube.3mf"}}
	res := &pipeline.Result{
		EntryName: "Metadata/plate_1.gcode",
		Estimate:  gcode.Estimate{Unknown: true},
	}

	out := renderJobSummary("looped_cube.3mf", inputs, gcode.DefaultOptions(), res)
	assert.Contains(t, out, "unknown (no time comments in toolpath)")
}

func TestEstimateCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFixtureContainer(t, dir, "benchy.3mf")

	require.NoError(t, runApp(t, "estimate", "--loops", "3", "--loop-wait-min", "2", input))
}
