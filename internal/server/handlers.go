// Package server exposes the processing pipeline over HTTP: container
// upload and processing, preview and estimation, job inspection, and a
// health probe. The listener is a go-supervisor httpserver runnable; a
// supervisor drives its lifecycle and signal handling.
package server

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/net/http/httpguts"

	"github.com/loopfarm/printloop/internal/config"
	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/job"
	"github.com/loopfarm/printloop/internal/job/finitestate"
	"github.com/loopfarm/printloop/internal/pipeline"
	"github.com/loopfarm/printloop/internal/threemf"
)

// ContentType3MF is the media type of a repacked job container.
const ContentType3MF = "model/3mf"

// uploadField is the multipart field carrying the job containers.
const uploadField = "files"

// multipartMemoryLimit bounds how much of a parsed upload stays in memory
// before spilling to temp files.
const multipartMemoryLimit = 32 << 20

// Handler serves the printloop HTTP API. It is safe for concurrent use;
// each request runs its own pipeline and shares only the job store.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	limits gcode.Limits
	jobs   *job.Store
}

// NewHandler creates a Handler backed by a fresh job store sized from the
// configuration.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:    cfg,
		logger: logger.WithGroup("server"),
		limits: cfg.Limits.Engine(),
		jobs:   job.NewStore(cfg.JobHistory),
	}
}

// Jobs returns the handler's job store.
func (h *Handler) Jobs() *job.Store {
	return h.jobs
}

// Process accepts one or more containers plus assembly options and
// responds with the repacked container as a download.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Sprintf("%s not allowed, use POST", r.Method))
		return
	}

	inputs, opts, err := h.parseRequest(w, r)
	if err != nil {
		h.writeError(w, err, uuid.Nil)
		return
	}

	j, err := job.New(job.SourceHTTP, inputs[0].Name, h.logger.Handler())
	if err != nil {
		h.writeError(w, err, uuid.Nil)
		return
	}
	h.jobs.Add(j)

	res, err := pipeline.ProcessTracked(r.Context(), j.Logger(), j, inputs, opts, h.limits)
	if err != nil {
		h.recordFailure(j, err)
		h.writeError(w, err, j.ID)
		return
	}
	if err := j.MarkPackaged(res); err != nil {
		h.writeError(w, err, j.ID)
		return
	}

	w.Header().Set("Content-Type", ContentType3MF)
	w.Header().Set("Content-Disposition", downloadDisposition(inputs[0].Name))
	w.Header().Set("X-Job-ID", j.ID.String())
	if res.Estimate.TotalSeconds != nil {
		w.Header().Set("X-Estimated-Seconds", fmt.Sprintf("%.0f", *res.Estimate.TotalSeconds))
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(res.Output)))
	if _, err := w.Write(res.Output); err != nil {
		j.Logger().Error("Failed to write response body", "error", err)
	}
}

// Preview runs the pipeline without returning the container: the response
// is a JSON summary with the script preview and the runtime estimate.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Sprintf("%s not allowed, use POST", r.Method))
		return
	}

	inputs, opts, err := h.parseRequest(w, r)
	if err != nil {
		h.writeError(w, err, uuid.Nil)
		return
	}

	res, err := pipeline.Process(r.Context(), h.logger, inputs, opts, h.limits)
	if err != nil {
		h.writeError(w, err, uuid.Nil)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Preview:     res.Preview,
		EntryName:   res.EntryName,
		ScriptBytes: res.ScriptBytes,
		Estimate:    newEstimateJSON(res.Estimate),
		Summary:     res.Summary,
		Options:     opts.String(),
	})
}

// JobRoutes dispatches GET /jobs/{id} and GET /jobs/{id}/logs.
func (h *Handler) JobRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Sprintf("%s not allowed, use GET", r.Method))
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs"), "/")
	parts := strings.Split(rest, "/")

	id, err := uuid.FromString(parts[0])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_id",
			fmt.Sprintf("%q is not a job id", parts[0]))
		return
	}
	j, ok := h.jobs.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found",
			fmt.Sprintf("job %s not found", id))
		return
	}

	switch {
	case len(parts) == 1:
		h.writeJob(w, j)
	case len(parts) == 2 && parts[1] == "logs":
		h.writeJobLogs(w, j)
	default:
		writeJSONError(w, http.StatusNotFound, "not_found",
			fmt.Sprintf("no such resource under job %s", id))
	}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJob(w http.ResponseWriter, j *job.Job) {
	resp := jobResponse{
		ID:           j.ID.String(),
		State:        j.State(),
		Source:       string(j.Source),
		SourceDetail: j.SourceDetail,
		CreatedAt:    j.CreatedAt,
	}
	if err := j.Err(); err != nil {
		resp.Error = err.Error()
	}
	if res := j.Result(); res != nil {
		resp.EntryName = res.EntryName
		resp.ScriptBytes = res.ScriptBytes
		est := newEstimateJSON(res.Estimate)
		resp.Estimate = &est
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJobLogs replays the job's captured log records as JSON lines.
func (h *Handler) writeJobLogs(w http.ResponseWriter, j *job.Job) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	handler := slog.NewJSONHandler(w, nil)
	if err := j.PlayLogs(handler); err != nil {
		h.logger.Error("Failed to replay job logs", "id", j.ID, "error", err)
	}
}

// parseRequest reads the multipart upload: every file under the "files"
// field becomes a pipeline input, the remaining form fields become
// assembly options.
func (h *Handler) parseRequest(
	w http.ResponseWriter,
	r *http.Request,
) ([]pipeline.Input, gcode.Options, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, gcode.Options{}, fmt.Errorf("%w: %w", errBadUpload, err)
	}

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		return nil, gcode.Options{}, gcode.ErrEmptyInput
	}

	inputs := make([]pipeline.Input, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, gcode.Options{}, fmt.Errorf("%w: %s: %w", errBadUpload, fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, gcode.Options{}, fmt.Errorf("%w: %s: %w", errBadUpload, fh.Filename, err)
		}
		inputs = append(inputs, pipeline.Input{Name: fh.Filename, Data: data})
	}

	opts, err := parseOptions(r.MultipartForm.Value, h.cfg.SweepGcode)
	if err != nil {
		return nil, gcode.Options{}, err
	}
	return inputs, opts, nil
}

// recordFailure moves the job to the matching terminal state: invalid
// when the request was rejected before any pipeline work, failed after.
func (h *Handler) recordFailure(j *job.Job, cause error) {
	if j.State() == finitestate.StateCreated {
		_ = j.MarkInvalid(cause)
		return
	}
	_ = j.MarkFailed(cause)
}

// downloadDisposition builds the attachment header from the first upload
// name. Names that would not survive as a header value fall back to a
// fixed filename.
func downloadDisposition(uploadName string) string {
	base := path.Base(strings.ReplaceAll(uploadName, "\\", "/"))
	name := "looped_" + base
	if !strings.HasSuffix(strings.ToLower(name), ".3mf") {
		name += ".3mf"
	}
	cd := fmt.Sprintf("attachment; filename=%q", name)
	if !httpguts.ValidHeaderFieldValue(cd) {
		return `attachment; filename="printloop.3mf"`
	}
	return cd
}

type previewResponse struct {
	Preview     string       `json:"preview"`
	EntryName   string       `json:"entry_name"`
	ScriptBytes int64        `json:"script_bytes"`
	Estimate    estimateJSON `json:"estimate"`
	Summary     string       `json:"summary"`
	Options     string       `json:"options"`
}

type jobResponse struct {
	ID           string        `json:"id"`
	State        string        `json:"state"`
	Source       string        `json:"source"`
	SourceDetail string        `json:"source_detail,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	Error        string        `json:"error,omitempty"`
	EntryName    string        `json:"entry_name,omitempty"`
	ScriptBytes  int64         `json:"script_bytes,omitempty"`
	Estimate     *estimateJSON `json:"estimate,omitempty"`
}

type estimateJSON struct {
	PerLoopSeconds *float64 `json:"per_loop_seconds"`
	TotalSeconds   *float64 `json:"total_seconds"`
	Unknown        bool     `json:"unknown"`
}

func newEstimateJSON(e gcode.Estimate) estimateJSON {
	return estimateJSON{
		PerLoopSeconds: e.PerLoopSeconds,
		TotalSeconds:   e.TotalSeconds,
		Unknown:        e.Unknown,
	}
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

// errBadUpload marks a multipart body that could not be read.
var errBadUpload = errors.New("malformed upload")

// writeError maps pipeline and engine errors to HTTP statuses: option
// and upload problems are 400s, toolpath and ceiling rejections are 422s,
// anything unexpected is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error, jobID uuid.UUID) {
	status := http.StatusInternalServerError
	kind := "internal"

	var (
		limitErr     *gcode.LimitExceededError
		sweepErr     *gcode.CustomSweepTooLargeError
		structureErr *gcode.StructureError
		tooShortErr  *gcode.TooShortError
		orderErr     *gcode.InvalidOrderError
	)
	switch {
	case errors.As(err, &limitErr):
		status, kind = http.StatusUnprocessableEntity, "limit_exceeded"
	case errors.As(err, &sweepErr):
		status, kind = http.StatusUnprocessableEntity, "sweep_too_large"
	case errors.As(err, &structureErr):
		status, kind = http.StatusUnprocessableEntity, "structure_not_recognized"
	case errors.As(err, &tooShortErr):
		status, kind = http.StatusUnprocessableEntity, "body_too_short"
	case errors.Is(err, threemf.ErrNoToolpath):
		status, kind = http.StatusUnprocessableEntity, "no_toolpath"
	case errors.Is(err, zip.ErrFormat):
		status, kind = http.StatusUnprocessableEntity, "not_a_container"
	case errors.As(err, &orderErr), errors.Is(err, gcode.ErrInvalidValue):
		status, kind = http.StatusBadRequest, "invalid_options"
	case errors.Is(err, gcode.ErrEmptyInput):
		status, kind = http.StatusBadRequest, "no_files"
	case errors.Is(err, errBadUpload):
		status, kind = http.StatusBadRequest, "malformed_upload"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
	}

	resp := errorResponse{Kind: kind, Message: err.Error()}
	if jobID != uuid.Nil {
		resp.JobID = jobID.String()
	}
	writeJSON(w, status, resp)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
