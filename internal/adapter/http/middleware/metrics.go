package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/clienttx/internal/infrastructure/metrics"
)

// Metrics returns middleware that records HTTP metrics.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPInFlight.Inc()
			defer m.HTTPInFlight.Dec()

			// Wrap response writer to capture status code
			wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath replaces identifiers in API paths to keep label cardinality low.
//
//	/api/v1/client-transactions/X/accounts/Y/balances -> /api/v1/client-transactions/:ctid/accounts/:account_id/balances
//	/api/v1/accounts/Y/client-transactions            -> /api/v1/accounts/:account_id/client-transactions
func normalizePath(path string) string {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}

	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	switch {
	case len(parts) >= 4 && parts[0] == "client-transactions" && parts[2] == "accounts":
		parts[1] = ":ctid"
		parts[3] = ":account_id"
	case len(parts) >= 2 && parts[0] == "client-transactions":
		parts[1] = ":ctid"
	case len(parts) >= 2 && parts[0] == "accounts":
		parts[1] = ":account_id"
	}

	return prefix + strings.Join(parts, "/")
}
