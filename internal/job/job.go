// Package job tracks one processing request through its lifecycle with an
// id, a state machine, and a captured log history that can be replayed
// after the job finishes.
package job

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-loglater"

	"github.com/loopfarm/printloop/internal/job/finitestate"
	"github.com/loopfarm/printloop/internal/pipeline"
)

// Source describes where a job came from.
type Source string

const (
	SourceHTTP Source = "http"
	SourceCLI  Source = "cli"
	SourceTest Source = "test"
)

// Job is the record of one processing request. The pipeline result is
// attached when the job reaches the packaged state; the error when it
// fails.
type Job struct {
	// ID is the unique identifier for this job
	ID uuid.UUID

	// Source metadata
	Source       Source
	SourceDetail string
	CreatedAt    time.Time

	// State management
	fsm finitestate.Machine

	// Logging with history tracking
	logger       *slog.Logger
	logCollector *loglater.LogCollector

	mu     sync.RWMutex
	result *pipeline.Result
	err    error
}

// New creates a Job with a fresh UUIDv6 and a log collector wrapping the
// provided handler.
func New(source Source, sourceDetail string, handler slog.Handler) (*Job, error) {
	id := uuid.Must(uuid.NewV6())

	sm, err := finitestate.New(handler)
	if err != nil {
		return nil, fmt.Errorf("%s failed to create state machine: %w", id, err)
	}

	logCollector := loglater.NewLogCollector(handler)
	logger := slog.New(logCollector).With(
		"id", id,
		"source", source,
		"sourceDetail", sourceDetail)

	j := &Job{
		ID:           id,
		Source:       source,
		SourceDetail: sourceDetail,
		CreatedAt:    time.Now(),
		fsm:          sm,
		logger:       logger,
		logCollector: logCollector,
	}

	j.logger.Info("Job created")
	return j, nil
}

// Logger returns the job's logger. Everything written through it is also
// retained for later replay.
func (j *Job) Logger() *slog.Logger {
	return j.logger
}

// State returns the current lifecycle state.
func (j *Job) State() string {
	return j.fsm.GetState()
}

// BeginExtraction marks the containers as being opened and segmented.
func (j *Job) BeginExtraction() error {
	if err := j.fsm.Transition(finitestate.StateExtracting); err != nil {
		j.logger.Error("Failed to transition to extracting state", "error", err)
		return err
	}
	j.logger.Info("Extraction started")
	return nil
}

// BeginAssembly marks the looped script as being built.
func (j *Job) BeginAssembly() error {
	if err := j.fsm.Transition(finitestate.StateAssembling); err != nil {
		j.logger.Error("Failed to transition to assembling state", "error", err)
		return err
	}
	j.logger.Info("Assembly started")
	return nil
}

// MarkPackaged records the pipeline result and moves the job to its
// terminal success state.
func (j *Job) MarkPackaged(res *pipeline.Result) error {
	if err := j.fsm.Transition(finitestate.StatePackaged); err != nil {
		j.logger.Error("Failed to transition to packaged state", "error", err)
		return err
	}

	j.mu.Lock()
	j.result = res
	j.mu.Unlock()

	j.logger.Info("Job packaged",
		"entry", res.EntryName,
		"script_bytes", res.ScriptBytes)
	return nil
}

// MarkFailed records a pipeline failure.
func (j *Job) MarkFailed(cause error) error {
	j.mu.Lock()
	j.err = cause
	j.mu.Unlock()

	if err := j.fsm.Transition(finitestate.StateFailed); err != nil {
		j.logger.Error("Failed to transition to failed state", "error", err)
		return err
	}
	j.logger.Error("Job failed", "error", cause)
	return nil
}

// MarkInvalid records a request rejected before any pipeline work ran.
func (j *Job) MarkInvalid(cause error) error {
	j.mu.Lock()
	j.err = cause
	j.mu.Unlock()

	if err := j.fsm.Transition(finitestate.StateInvalid); err != nil {
		j.logger.Error("Failed to transition to invalid state", "error", err)
		return err
	}
	j.logger.Warn("Job rejected", "error", cause)
	return nil
}

// Result returns the pipeline result, or nil while the job is unfinished
// or failed.
func (j *Job) Result() *pipeline.Result {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

// Err returns the terminal error, if any.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// PlayLogs replays the job's captured log records into the given handler.
func (j *Job) PlayLogs(handler slog.Handler) error {
	return j.logCollector.PlayLogs(handler)
}
