package middleware

import (
	"net/http"

	"github.com/davidbz/tollbooth/internal/config"
)

// Middleware wraps an http.Handler with additional functionality.
// Middlewares can be composed using the Chain function.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middlewares into a single middleware.
// Middlewares are applied in the order they are provided, with the first
// middleware being the outermost wrapper (executed first on request).
// Nil middlewares are skipped, so optional layers such as CORS can be
// passed unconditionally.
//
// Example:
//
//	chain := Chain(CORS(corsConfig), Trace(), Recover())
//	handler := chain(mux)
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		// Apply in reverse order so first middleware wraps outermost.
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] == nil {
				continue
			}
			final = middlewares[i](final)
		}
		return final
	}
}

// BuildMiddlewareChain composes the chain in front of the billing API.
// Order matters: CORS -> Trace -> Recover. Preflights never reach Trace, and
// a panicking quote is logged with the request ids Trace attached.
func BuildMiddlewareChain(corsConfig *config.CORSConfig) Middleware {
	return Chain(
		CORS(corsConfig),
		Trace(),
		Recover(),
	)
}
