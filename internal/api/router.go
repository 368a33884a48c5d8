package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/session"
	"github.com/dennisdiepolder/monti/insights/pkg/middleware"
)

// Deps holds everything the HTTP surface needs
type Deps struct {
	Sessions       *session.Manager
	Authenticator  *auth.Authenticator
	Tokens         *auth.Tokens
	Gate           *auth.Gate
	Processor      *ingestion.Processor
	AllowedOrigins []string
	MaxUploadBytes int64
	Health         http.HandlerFunc
	Logger         zerolog.Logger
}

// NewRouter builds the chi router with all routes registered
func NewRouter(d Deps) chi.Router {
	authHandler := NewAuthHandler(d.Authenticator, d.Tokens, d.Sessions, d.Logger)
	recordsHandler := NewRecordsHandler(d.Processor, d.MaxUploadBytes, d.Logger)
	viewHandler := NewViewHandler(d.Logger)
	exportHandler := NewExportHandler(d.Logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))
	r.Use(countRequests)

	// public routes
	if d.Health != nil {
		r.Get("/health", d.Health)
	}
	r.Get("/metrics", metrics.Get().Handler())
	r.Post("/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(d.Gate.Middleware)
		r.Use(SessionMiddleware(d.Sessions))

		r.Post("/auth/logout", authHandler.Logout)

		r.Route("/api/records", func(r chi.Router) {
			r.Get("/", recordsHandler.List)
			r.Post("/", recordsHandler.Create)
			r.Put("/", recordsHandler.ReplaceAll)
			r.Post("/delete", recordsHandler.BulkDelete)
			r.Post("/upload", recordsHandler.Upload)
			r.Post("/dedupe", recordsHandler.Dedupe)
			r.Patch("/{id}", recordsHandler.Update)
			r.Delete("/{id}", recordsHandler.Delete)
		})

		r.Route("/api/view", func(r chi.Router) {
			r.Get("/summary", viewHandler.Summary)
			r.Get("/kpis", viewHandler.KPIs)
			r.Get("/options", viewHandler.Options)
			r.Get("/quality", viewHandler.Quality)
		})

		r.Route("/api/export", func(r chi.Router) {
			r.Get("/records", exportHandler.Records)
			r.Get("/summary", exportHandler.Summary)
		})
	})

	return r
}

// countRequests records one metric per request, keyed by the matched route
// pattern so path parameters do not explode the label set
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = r.Method + " " + pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.Get().RecordHTTPRequest(endpoint, status)
	})
}
