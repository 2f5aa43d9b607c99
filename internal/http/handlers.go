package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// appMetrics are the counters reported by /metrics.
type appMetrics struct {
	startedAt     time.Time
	saved         int64
	deleted       int64
	loginFailures int64
	liveStreams   int64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.metrics.startedAt).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.svc.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["live"] = map[string]interface{}{
		"subscribers": s.svc.Hub().Subscribers(),
		"version":     s.svc.Hub().Version(),
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, value)
	}
	gauge := func(name, help string, value float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, value)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("transactions_saved_total", "Transactions saved through the dialog or the API", atomic.LoadInt64(&s.metrics.saved))
	counter("transactions_deleted_total", "Transactions deleted through the dialog or the API", atomic.LoadInt64(&s.metrics.deleted))
	counter("login_failures_total", "Rejected sign-in attempts", atomic.LoadInt64(&s.metrics.loginFailures))
	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Requests refused by threat detection", securityMetrics.BlockedRequests)

	if s.summaries != nil {
		stats := s.summaries.Stats()
		counter("summary_cache_hits_total", "Month summary cache hits", int64(stats.Hits))
		counter("summary_cache_misses_total", "Month summary cache misses", int64(stats.Misses))
		gauge("summary_cache_entries", "Current month summary cache entries", float64(stats.Size))
	}

	gauge("live_streams", "Open live event streams", float64(atomic.LoadInt64(&s.metrics.liveStreams)))
	gauge("live_subscribers", "Live query subscriptions on the change hub", float64(s.svc.Hub().Subscribers()))
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))
	gauge("uptime_seconds", "Application uptime in seconds", s.now().Sub(s.metrics.startedAt).Seconds())
}
