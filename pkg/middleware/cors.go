package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the dashboard frontends in allowedOrigins to call the API with
// their session cookie. A "*" entry opens the API to any origin but turns
// credentials off, so only bearer tokens work cross-origin in that mode.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	credentials := true
	for _, o := range allowedOrigins {
		if o == "*" {
			credentials = false
			break
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		// exports are downloaded via fetch, which needs the filename header
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: credentials,
		MaxAge:           300,
	})

	return c.Handler
}
