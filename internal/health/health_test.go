package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(c *Checker, path string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	c.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndLive(t *testing.T) {
	c := NewChecker("edgecheck", "1.2.3", nil)

	for _, path := range []string{"/health", "/live"} {
		rec := serve(c, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "edgecheck", body.Service)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		db       DatabasePinger
		wantCode int
		wantDB   string
	}{
		{"not marked ready", false, nil, http.StatusServiceUnavailable, ""},
		{"ready without database", true, nil, http.StatusOK, ""},
		{"ready with database", true, pinger{}, http.StatusOK, "ok"},
		{"database down", true, pinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "error: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("edgecheck", "", tt.db)
			c.SetReady(tt.ready)

			rec := serve(c, "/ready")
			assert.Equal(t, tt.wantCode, rec.Code)

			var body ReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDB, body.Checks["database"])
		})
	}
}
