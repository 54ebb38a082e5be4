package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/mw"
)

func init() { Register(registerEndpoints) }

func registerEndpoints(r chi.Router, d deps.Deps) {
	r.Route("/endpoints", func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Get("/", handlers.ListEndpoints(d))
		r.Post("/", handlers.AddEndpoint(d))
		r.Delete("/", handlers.ResetEndpoints(d))
		r.Delete("/{region}/{product}", handlers.RemoveEndpoint(d))
	})
}
