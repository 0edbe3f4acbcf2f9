package middleware

import (
	"net/http"
	"time"

	"github.com/dukerupert/potluck/internal/metrics"
)

// Metrics records request counts and durations by matched route. It must
// wrap the ServeMux directly so the mux has set r.Pattern by the time the
// handler returns.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.ObserveRequest(r.Method, r.Pattern, rec.status, time.Since(start))
		})
	}
}
