package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"identra.org/internal/audit"
	"identra.org/internal/obs"
)

// Recover contains panics from anything downstream: the panic becomes an
// Exception audit event plus an operational log line, and the client gets a
// generic 500 envelope with no internal detail. An audit-write failure is
// logged but never masks the response.
func (a *API) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			cause, ok := rec.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", rec)
			}

			fields := map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			}
			if info, ok := audit.RequestInfoFromContext(r.Context()); ok {
				fields["request_id"] = info.RequestID
			}
			if !a.production {
				fields["error"] = cause.Error()
			}
			obs.Error("unhandled_exception", fields)

			if err := a.recorder.RecordException(r.Context(), cause); err != nil {
				obs.Error("exception audit write failed", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
			}

			writeError(w, http.StatusInternalServerError, msgInternalError)
		}()
		next.ServeHTTP(w, r)
	})
}

// Timing measures wall-clock and CPU cost of the downstream pipeline. When a
// request crosses the slow threshold it is persisted as a SlowPerformance
// audit event and the log line is raised to warning level.
func (a *API) Timing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		cpuStart := processCPUTime()

		// Deferred: the completion line is emitted even when a panic unwinds
		// through this middleware toward Recover.
		defer func() {
			elapsed := time.Since(start)
			cpu := processCPUTime() - cpuStart

			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.code,
				"duration_ms": elapsed.Milliseconds(),
				"cpu_ms":      cpu.Milliseconds(),
			}
			if info, ok := audit.RequestInfoFromContext(r.Context()); ok {
				fields["request_id"] = info.RequestID
			}

			slow := elapsed > a.slowThreshold
			if !slow {
				obs.Info("request_complete", fields)
				return
			}
			obs.Warn("request_complete", fields)
			// Sub-millisecond overruns still round up to a recordable value.
			ms := elapsed.Milliseconds()
			if ms < 1 {
				ms = 1
			}
			if err := a.recorder.RecordSlowPerformance(r.Context(), ms); err != nil {
				obs.Error("slow-performance audit write failed", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
			}
		}()

		next.ServeHTTP(sw, r)
	})
}
