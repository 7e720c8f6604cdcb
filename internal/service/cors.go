package service

import (
	"net/http"

	connectcors "connectrpc.com/cors"
	"github.com/rs/cors"
)

// preflight responses are cached by browsers for this many seconds
const corsMaxAge = 7200

// withCORS answers preflight requests and sets the allowed origin on every
// response. No allowed origins means any origin.
func withCORS(allowed []string, next http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: connectcors.AllowedMethods(),
		AllowedHeaders: connectcors.AllowedHeaders(),
		ExposedHeaders: append(connectcors.ExposedHeaders(), "X-Run-Id", "Content-Disposition"),
		MaxAge:         corsMaxAge,
	})
	return middleware.Handler(next)
}
