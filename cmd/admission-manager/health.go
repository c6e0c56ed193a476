// cmd/admission-manager/health.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostel-admissions/internal/common/logger"
)

// checker is one readiness dependency.
type checker interface {
	HealthCheck(ctx context.Context) error
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type healthServer struct {
	server *http.Server
	log    logger.Logger
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newHealthServer(addr string, zeebe checker, pg pinger, log logger.Logger) *healthServer {
	mux := newHealthMux(map[string]checker{
		"zeebe":    zeebe,
		"postgres": checkFunc(pg.Ping),
	})
	return &healthServer{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log:    log,
	}
}

func newHealthMux(checks map[string]checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, c := range checks {
			if err := c.HealthCheck(ctx); err != nil {
				deps[name] = err.Error()
				status, code = "not_ready", http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status":       status,
			"dependencies": deps,
			"time":         time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *healthServer) run() {
	s.log.Info("Health/Metrics server listening", map[string]interface{}{"address": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *healthServer) shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
