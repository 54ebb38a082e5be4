package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/mw"
)

func init() { Register(registerLocationCache) }

func registerLocationCache(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger)).Delete("/location/cache", handlers.FlushLocationCache(d))
}
