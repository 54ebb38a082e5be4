package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz reports ready once an endpoint table is served and, when Redis is
// enabled, Redis answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Resolver == nil || d.Resolver.LocalConfig() == nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "endpoint table not loaded"})
			return
		}

		if d.RedisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "redis unreachable"})
				return
			}
		}

		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
