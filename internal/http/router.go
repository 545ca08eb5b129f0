package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mdolezal/isdocsync/internal/http/auth"
	"github.com/mdolezal/isdocsync/internal/http/connection"
	invoiceHandler "github.com/mdolezal/isdocsync/internal/http/invoice"
	"github.com/mdolezal/isdocsync/internal/http/upload"
)

func New(
	jwtSecret string,
	allowedOrigins []string,
	uploadsV1 *upload.Handler,
	connectionV1 *connection.Handler,
	invoicesV1 *invoiceHandler.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// The OAuth callback arrives from the provider redirect without a bearer
	// token; the signed state parameter authenticates it instead.
	router.Get("/api/v1/fakturoid/callback", connectionV1.Callback)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Route("/uploads", uploadsV1.Routes)

		r.Route("/fakturoid", connectionV1.Routes)

		r.Route("/invoices", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			invoicesV1.Routes(r)
		})
	})

	return router
}
