package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"

	"github.com/davidbz/tollbooth/internal/config"
)

// CORS answers preflight requests for browser-based billing dashboards.
// A nil config disables it; Chain skips nil middlewares.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil || len(cfg.AllowedOrigins) == 0 {
		return nil
	}

	// Callers may pin their own ids, so the id headers are always allowed.
	headers := slices.Clone(cfg.AllowedHeaders)
	for _, h := range []string{HeaderTraceID, HeaderRequestID} {
		if !slices.Contains(headers, h) && !slices.Contains(headers, "*") {
			headers = append(headers, h)
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   headers,
		AllowCredentials: cfg.AllowCredentials,
		ExposedHeaders:   []string{HeaderTraceID, HeaderRequestID},
		MaxAge:           cfg.MaxAge,
	})

	return c.Handler
}
