package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"connect-notifier/internal/workers/notification/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedState scheduler.State

func (f fixedState) State() scheduler.State { return scheduler.State(f) }

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		state      scheduler.State
		wantCode   int
		wantStatus string
	}{
		{scheduler.StateIdle, http.StatusOK, "ready"},
		{scheduler.StateDispatching, http.StatusOK, "ready"},
		{scheduler.StateErrorBackoff, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(fixedState(tt.state)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, tt.state.String(), body["state"])
		})
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router := newRouter(fixedState(scheduler.StateIdle))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
