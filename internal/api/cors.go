package api

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS wraps a handler with cross-origin support for the given origins. An empty list
// or "*" allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: !slices.Contains(origins, "*"),
	})
	return c.Handler
}
