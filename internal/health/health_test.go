package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (int, report) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var rep report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	return rec.Code, rep
}

func TestProbes(t *testing.T) {
	s := New(0)
	h := s.Handler()

	code, rep := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", rep.Status)

	code, rep = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", rep.Status)

	s.SetReady(true)
	s.AddCheck("session", func(context.Context) error { return nil })
	code, rep = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"session": "ok"}, rep.Checks)

	s.AddCheck("daw", func(context.Context) error { return errors.New("project file missing") })
	code, rep = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", rep.Status)
	assert.Equal(t, "project file missing", rep.Checks["daw"])
}
