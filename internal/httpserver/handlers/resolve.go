package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
)

type resolveResponse struct {
	Endpoint string `json:"endpoint"`
	Source   string `json:"source"`
}

// Resolve answers GET /resolve?region=&product=&service_code=&endpoint_type=
func Resolve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		region := strings.TrimSpace(q.Get("region"))
		product := strings.TrimSpace(q.Get("product"))
		if region == "" || product == "" {
			writeError(w, http.StatusBadRequest, "MissingParameter", "region and product are required")
			return
		}

		req := domain.NewResolveRequest(region, product, q.Get("service_code"), q.Get("endpoint_type"))
		host, source, err := d.Resolver.ResolveWithSource(r.Context(), req)
		if err != nil {
			writeResolveError(w, err)
			return
		}

		if d.Store != nil {
			if err := d.Store.IncrementResolveCount(r.Context(), source); err != nil {
				d.Logger.Debug("failed to record resolve count", logger.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, resolveResponse{Endpoint: host, Source: source})
	}
}
