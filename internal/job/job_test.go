package job

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopfarm/printloop/internal/job/finitestate"
	"github.com/loopfarm/printloop/internal/pipeline"
)

func discardHandler() slog.Handler {
	return slog.NewTextHandler(bytes.NewBuffer(nil), nil)
}

func TestJob_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		j, err := New(SourceTest, "cube.3mf", discardHandler())
		require.NoError(t, err)
		assert.False(t, j.ID.IsNil())
		assert.Equal(t, finitestate.StateCreated, j.State())

		require.NoError(t, j.BeginExtraction())
		assert.Equal(t, finitestate.StateExtracting, j.State())

		require.NoError(t, j.BeginAssembly())

		res := &pipeline.Result{EntryName: "Metadata/plate_1.gcode", ScriptBytes: 42}
		require.NoError(t, j.MarkPackaged(res))
		assert.Equal(t, finitestate.StatePackaged, j.State())
		assert.Equal(t, res, j.Result())
		assert.NoError(t, j.Err())
	})

	t.Run("failure records the cause", func(t *testing.T) {
		j, err := New(SourceTest, "cube.3mf", discardHandler())
		require.NoError(t, err)
		require.NoError(t, j.BeginExtraction())

		cause := errors.New("markers not found")
		require.NoError(t, j.MarkFailed(cause))
		assert.Equal(t, finitestate.StateFailed, j.State())
		assert.ErrorIs(t, j.Err(), cause)
		assert.Nil(t, j.Result())
	})

	t.Run("rejection before work", func(t *testing.T) {
		j, err := New(SourceTest, "cube.3mf", discardHandler())
		require.NoError(t, err)

		require.NoError(t, j.MarkInvalid(errors.New("loops limit exceeded")))
		assert.Equal(t, finitestate.StateInvalid, j.State())
	})

	t.Run("terminal state does not move", func(t *testing.T) {
		j, err := New(SourceTest, "cube.3mf", discardHandler())
		require.NoError(t, err)
		require.NoError(t, j.MarkInvalid(errors.New("rejected")))

		assert.Error(t, j.BeginExtraction())
		assert.Equal(t, finitestate.StateInvalid, j.State())
	})
}

func TestJob_PlayLogs(t *testing.T) {
	t.Parallel()

	j, err := New(SourceTest, "cube.3mf", discardHandler())
	require.NoError(t, err)

	j.Logger().Info("processing two containers")
	require.NoError(t, j.BeginExtraction())

	var buf bytes.Buffer
	require.NoError(t, j.PlayLogs(slog.NewTextHandler(&buf, nil)))

	out := buf.String()
	assert.Contains(t, out, "Job created")
	assert.Contains(t, out, "processing two containers")
	assert.Contains(t, out, "Extraction started")
}

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("get after add", func(t *testing.T) {
		s := NewStore(10)
		j, err := New(SourceTest, "cube.3mf", discardHandler())
		require.NoError(t, err)

		s.Add(j)
		got, ok := s.Get(j.ID)
		require.True(t, ok)
		assert.Equal(t, j, got)
	})

	t.Run("evicts oldest beyond bound", func(t *testing.T) {
		s := NewStore(2)

		jobs := make([]*Job, 3)
		for i := range jobs {
			j, err := New(SourceTest, "cube.3mf", discardHandler())
			require.NoError(t, err)
			jobs[i] = j
			s.Add(j)
		}

		assert.Equal(t, 2, s.Len())
		_, ok := s.Get(jobs[0].ID)
		assert.False(t, ok, "oldest job should be evicted")
		_, ok = s.Get(jobs[2].ID)
		assert.True(t, ok)
	})
}

func TestSourceDetailInLogs(t *testing.T) {
	t.Parallel()

	j, err := New(SourceHTTP, "a.3mf, b.3mf", discardHandler())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, j.PlayLogs(slog.NewTextHandler(&buf, nil)))
	assert.True(t, strings.Contains(buf.String(), "a.3mf"))
}
