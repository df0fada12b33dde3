package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/davidbz/tollbooth/internal/observability"
)

// Recover converts a panic in a handler into a 500 response. It must sit
// inside Trace so the log line carries the request ids.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.FromContext(r.Context()).Error("panic recovered",
					observability.Any("panic", rec),
					observability.String("method", r.Method),
					observability.String("path", r.URL.Path),
					observability.Stack("stack"),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":     "internal server error",
					"requestId": observability.GetRequestID(r.Context()),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
