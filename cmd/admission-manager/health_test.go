// cmd/admission-manager/health_test.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-admissions/internal/common/config"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/workers"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		pgErr    error
		wantCode int
		wantPG   string
	}{
		{"all up", nil, http.StatusOK, "ok"},
		{"postgres down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable, "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newHealthMux(map[string]checker{
				"zeebe":    checkFunc(func(context.Context) error { return nil }),
				"postgres": checkFunc(func(context.Context) error { return tt.pgErr }),
			})
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body struct {
				Dependencies map[string]string `json:"dependencies"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "ok", body.Dependencies["zeebe"])
			assert.Equal(t, tt.wantPG, body.Dependencies["postgres"])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	mux := newHealthMux(nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeoutFor(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		"final-decision": {Enabled: true, Timeout: 60000},
	}}
	assert.Equal(t, 60*time.Second, timeoutFor(cfg, "final-decision", time.Second))
	assert.Equal(t, time.Second, timeoutFor(cfg, "list-audit", time.Second))
}

func TestRegisterHandlersCoversEveryJobType(t *testing.T) {
	regs := registerHandlers(&config.Config{}, nil, nil, workers.Runtime{Logger: logger.NewTestLogger(t)})
	seen := make(map[string]bool)
	for _, r := range regs {
		assert.False(t, seen[r.taskType], "duplicate %s", r.taskType)
		seen[r.taskType] = true
		assert.NotNil(t, r.handler)
	}
	assert.Len(t, seen, 11)
}
