package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// instrument records request count, latency and error class for endpoint.
// Server errors are also logged with the request id so they can be matched
// to the response the client saw.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		elapsed := float64(time.Since(start).Milliseconds())

		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, elapsed)

		class := errorClass(status)
		if class == "" {
			return
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
		if status >= http.StatusInternalServerError {
			s.logger.Warn(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.Int("status", status),
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.Float64("duration_ms", elapsed),
			)
		}
	}
}

// errorClass buckets a status code for the error counter; "" means success.
func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusBadRequest:
		return "bad_request"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return ""
	}
}
