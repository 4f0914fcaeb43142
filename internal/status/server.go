// Package status serves recorder health and statistics over HTTP for
// headless monitoring.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Stats supplies a point-in-time snapshot of recorder state.
type Stats interface {
	Stats() map[string]any
}

// Server exposes /health and /stats on a local address.
type Server struct {
	stats      Stats
	addr       string
	logger     *slog.Logger
	started    time.Time
	proc       *process.Process
	httpServer *http.Server
}

// New creates a status server. Process-level metrics are best-effort;
// they are omitted when the platform does not support them.
func New(stats Stats, addr string, logger *slog.Logger) *Server {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debug("process metrics unavailable", "error", err)
		proc = nil
	}
	return &Server{
		stats:   stats,
		addr:    addr,
		logger:  logger,
		started: time.Now(),
		proc:    proc,
	}
}

// Handler returns the HTTP handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return s.loggingMiddleware(mux)
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		s.logger.Info("status server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"stats":  s.stats.Stats(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"uptime_seconds": time.Since(s.started).Seconds(),
		"stats":          s.stats.Stats(),
		"process":        s.processStats(),
	})
}

// processStats reports CPU and memory for the recorder process. The
// busy-spin pacer makes CPU usage worth watching.
func (s *Server) processStats() map[string]any {
	if s.proc == nil {
		return nil
	}
	out := map[string]any{}
	if cpu, err := s.proc.CPUPercent(); err == nil {
		out["cpu_percent"] = cpu
	}
	if mem, err := s.proc.MemoryInfo(); err == nil {
		out["rss_bytes"] = mem.RSS
	}
	return out
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}

// loggingMiddleware logs requests at debug level; the endpoint is
// polled, so anything louder would flood.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Debug("status request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
