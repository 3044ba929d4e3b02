package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routedMux mounts the route table the way the HTTP runner does: each
// route handled at its configured path on a plain ServeMux.
func routedMux(t *testing.T, h *Handler) *http.ServeMux {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	routes, err := buildRoutes(h, logger)
	require.NoError(t, err)

	mux := http.NewServeMux()
	for i := range routes {
		mux.Handle(routes[i].Path, &routes[i])
	}
	return mux
}

func TestBuildRoutes_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("job subtree is reachable through the mux", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(t)
		mux := routedMux(t, h)

		req := multipartRequest(t, "/process",
			[]upload{{name: "benchy.3mf", data: fixtureContainer(t, fixtureScript())}},
			map[string]string{"loops": "2"})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		id := rec.Header().Get("X-Job-ID")
		require.NotEmpty(t, id)

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		state := decodeJSON[jobResponse](t, rec.Body)
		assert.Equal(t, id, state.ID)

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/logs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	})

	t.Run("unknown job id answered by the handler, not the mux", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(t)
		mux := routedMux(t, h)

		target := "/jobs/" + uuid.Must(uuid.NewV6()).String()
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		// A JSON body distinguishes the handler's 404 from the mux's
		// plain-text fallback.
		resp := decodeJSON[errorResponse](t, rec.Body)
		assert.Equal(t, "not_found", resp.Kind)
	})

	t.Run("health answers through the mux", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(t)
		mux := routedMux(t, h)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[map[string]string](t, rec.Body)
		assert.Equal(t, "ok", resp["status"])
	})
}
