package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

type componentStatus struct {
	OK         bool                    `json:"ok"`
	Mode       string                  `json:"mode,omitempty"`
	Source     string                  `json:"source,omitempty"`
	LastReload string                  `json:"last_reload,omitempty"`
	Table      *localconfig.Stats      `json:"table,omitempty"`
	Overrides  *int                    `json:"overrides,omitempty"`
	LastChange string                  `json:"last_change,omitempty"`
	Location   *endpoint.LocationStats `json:"location,omitempty"`
	Impact     string                  `json:"impact,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

type infraResponse struct {
	ResolverMode string                     `json:"resolver_mode"`
	Components   map[string]componentStatus `json:"components"`
	ResolveCount map[string]int64           `json:"resolve_counts,omitempty"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overrides := len(d.Resolver.Entries())

		components := map[string]componentStatus{
			"localconfig": checkLocalConfig(d),
			"redis":       checkRedis(r.Context(), d),
			"location":    checkLocation(d.Resolver),
			"overrides": {
				OK:         true,
				Overrides:  &overrides,
				LastChange: formatTime(d.Resolver.OverridesUpdatedAt()),
			},
		}

		response := infraResponse{
			ResolverMode: determineResolverMode(components),
			Components:   components,
		}

		if d.Store != nil {
			if counts, err := d.Store.GetResolveCounts(r.Context()); err == nil {
				response.ResolveCount = counts
			}
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func determineResolverMode(components map[string]componentStatus) string {
	if cfg, ok := components["localconfig"]; ok && !cfg.OK {
		return "degraded" // serving a stale table
	}
	if loc, ok := components["location"]; ok && loc.Mode == "disabled" {
		return "local-only"
	}
	if redis, ok := components["redis"]; ok && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "full"
}

func checkLocalConfig(d deps.Deps) componentStatus {
	stats := d.Resolver.LocalConfig().Stats()
	status := componentStatus{OK: true, Table: &stats, Source: "bundled"}
	if d.ConfigFile == "" {
		return status
	}

	status.Source = d.ConfigFile
	status.LastReload = "never"
	if d.ReloadStatus != nil {
		last, err := d.ReloadStatus.Status()
		if !last.IsZero() {
			status.LastReload = formatTime(last)
		}
		if err != nil {
			status.OK = false
			status.Impact = "serving-previous-table"
			status.Error = err.Error()
		}
	}
	return status
}

func checkLocation(r *endpoint.DefaultResolver) componentStatus {
	loc := r.Location()
	if loc == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "local-tables-only"}
	}
	stats := loc.Stats()
	return componentStatus{OK: true, Mode: "enabled", Location: &stats}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "overrides-not-persisted",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "overrides-not-persisted",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "optimal",
	}
}

const timeLayout = "2006-01-02 15:04:05"

// formatTime renders t for /infra, "" when t is zero.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
