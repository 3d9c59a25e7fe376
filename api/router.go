package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/archon-ai/orchestrator/internal/orchestrator"
)

// NewRouter builds the orchestrator's control-plane HTTP handler: every
// endpoint in the external interface table, a Prometheus exposition
// endpoint, and a realtime status stream, wrapped in a small middleware
// chain (panic recovery, request logging, permissive CORS).
//
// limiters caps outbound request rate for adapters built by
// /agents/register, keyed by provider tag; nil disables limiting.
func NewRouter(orc *orchestrator.Orchestrator, limiters map[string]*rate.Limiter, logger *zap.Logger) http.Handler {
	h := NewHandler(orc, limiters, logger)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/status", h.HandleStatus)
	mux.HandleFunc("/metrics", h.HandleMetrics)
	mux.Handle("/metrics/prom", promhttp.Handler())
	mux.HandleFunc("/test", h.HandleTest)
	mux.HandleFunc("/ws", h.HandleWebSocket)

	mux.HandleFunc("/agents", h.HandleListAgents)
	mux.HandleFunc("/agents/register", h.HandleRegisterAgent)
	mux.HandleFunc("/agents/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/agents/")
		if agentID, ok := strings.CutSuffix(rest, "/test"); ok && r.Method == http.MethodPost {
			h.HandleTestAgent(w, r, agentID)
			return
		}
		if r.Method != http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		h.HandleUnregisterAgent(w, r, rest)
	})

	mux.HandleFunc("/tasks", h.HandleListTasks)
	mux.HandleFunc("/tasks/submit", h.HandleSubmitTask)
	mux.HandleFunc("/tasks/", func(w http.ResponseWriter, r *http.Request) {
		taskID := strings.TrimPrefix(r.URL.Path, "/tasks/")
		h.HandleGetTask(w, r, taskID)
	})

	return chain(mux, recovery(logger), requestLogger(logger), cors())
}

// middleware wraps an http.Handler with cross-cutting behavior.
type middleware func(http.Handler) http.Handler

// chain applies middlewares in order, so the first one listed runs
// outermost (closest to the wire).
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// recovery converts a panicking handler into a 500 response instead of
// crashing the server.
func recovery(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", zap.Any("error", err), zap.String("path", r.URL.Path))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack forwards to the wrapped writer so the /ws upgrade can take over
// the connection through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// requestLogger logs method, path, status and latency for every request.
func requestLogger(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// cors is permissive for every origin, method and header. The control API
// is an internal plane with no authentication of its own.
func cors() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
