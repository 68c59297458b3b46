package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector counts requests, error responses, and in-flight requests.
type MetricsCollector struct {
	requests atomic.Int64
	errors   atomic.Int64
	inFlight atomic.Int64
}

// NewMetricsCollector creates an empty metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Requests returns the total request count.
func (mc *MetricsCollector) Requests() int64 { return mc.requests.Load() }

// Errors returns the count of 4xx and 5xx responses.
func (mc *MetricsCollector) Errors() int64 { return mc.errors.Load() }

// InFlight returns the number of requests currently being served.
func (mc *MetricsCollector) InFlight() int64 { return mc.inFlight.Load() }

// Middleware returns middleware that feeds the collector.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)
		mc.inFlight.Add(1)
		defer mc.inFlight.Add(-1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errors.Add(1)
		}
	})
}
