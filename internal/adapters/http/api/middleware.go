package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/guestrank/pkg/logger"
	"github.com/okian/guestrank/pkg/metrics"
)

// MetricsMiddleware records request counts and durations labelled by the
// matched chi route pattern, keeping path parameters out of label values.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(routePattern(r), r.Method, strconv.Itoa(status),
			float64(time.Since(start).Microseconds())/1000)
	})
}

// LoggingMiddleware logs one line per request at debug level, and at warn
// level for server errors.
func LoggingMiddleware(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("route", routePattern(r)),
				logger.Int("status", ww.Status()),
				logger.Duration("elapsed", time.Since(start)),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.Status() >= http.StatusInternalServerError {
				l.Warn(r.Context(), "request failed", fields...)
				return
			}
			l.Debug(r.Context(), "request served", fields...)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
