package httpapi

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(WithRequestID, WithLogging, WithRecover)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", app.listProductsHandler)
		r.Post("/", app.createProductHandler)
		r.Get("/{id}", app.getProductHandler)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", app.listOrdersHandler)
		r.Post("/", app.createOrderHandler)
		r.Get("/{id}", app.getOrderHandler)
	})

	r.Get("/health", app.healthHandler)
	r.Get("/healthz", app.healthHandler)
	r.Get("/debug/metrics", app.metricsHandler)
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	r.Get("/openapi.yaml", app.openapiHandler)
	r.Get("/docs", app.docsHandler)
	return r
}
