package middleware

import (
	"net/http"
	"time"

	"github.com/davidbz/tollbooth/internal/observability"
)

// Header names used to propagate request identity.
const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// Trace creates a middleware that injects trace ID and request ID into every
// request. Caller-supplied ids are kept so metering sidecars can correlate
// quotes with their own logs.
func Trace() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			traceID := r.Header.Get(HeaderTraceID)
			if traceID == "" {
				traceID = observability.GenerateTraceID()
			}
			ctx = observability.WithTraceID(ctx, traceID)
			ctx = observability.WithSpanID(ctx, observability.GenerateSpanID())

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = observability.GenerateRequestID()
			}
			ctx = observability.WithRequestID(ctx, requestID)

			w.Header().Set(HeaderTraceID, traceID)
			w.Header().Set(HeaderRequestID, requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			observability.FromContext(ctx).Info("request completed",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", rec.status),
				observability.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
