// Package api exposes the classification engine over HTTP using chi.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yout0703/web-collector/internal/common/logger"
)

// RequestID tags every request with a generated id, echoed back in the
// X-Request-Id header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("http request", map[string]interface{}{
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    sw.status,
				"duration":  time.Since(start).String(),
				"requestId": sw.Header().Get("X-Request-Id"),
			})
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
