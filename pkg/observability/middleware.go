package observability

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsMiddleware records promptgate_requests_total,
// promptgate_request_duration_seconds and promptgate_requests_in_flight for
// every request passing through next, including requests aborted by a
// panic. The status label is the status class ("2xx", "4xx", ...).
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			class := strconv.Itoa(sw.status/100) + "xx"
			RequestsTotal.WithLabelValues(r.Method, class).Inc()
			RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(sw, r)
	})
}

// statusWriter remembers the first status code written.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
