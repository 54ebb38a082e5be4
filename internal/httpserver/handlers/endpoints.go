package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
)

type addEndpointRequest struct {
	RegionID    string `json:"region_id"`
	ProductCode string `json:"product_code"`
	Endpoint    string `json:"endpoint"`
}

type listEndpointsResponse struct {
	Count     int                    `json:"count"`
	Endpoints []domain.EndpointEntry `json:"endpoints"`
}

// ListEndpoints returns the user overrides
func ListEndpoints(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := d.Resolver.Entries()
		writeJSON(w, http.StatusOK, listEndpointsResponse{Count: len(entries), Endpoints: entries})
	}
}

// AddEndpoint registers an override and persists it when Redis is enabled
func AddEndpoint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addEndpointRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidBody", err.Error())
			return
		}

		body.RegionID = strings.TrimSpace(body.RegionID)
		body.ProductCode = strings.TrimSpace(body.ProductCode)
		body.Endpoint = strings.TrimSpace(body.Endpoint)
		if body.RegionID == "" || body.ProductCode == "" || body.Endpoint == "" {
			writeError(w, http.StatusBadRequest, "MissingParameter", "region_id, product_code and endpoint are required")
			return
		}

		d.Resolver.AddEndpoint(body.RegionID, body.ProductCode, body.Endpoint)
		entry := domain.EndpointEntry{
			RegionID:    body.RegionID,
			ProductCode: body.ProductCode,
			Hostname:    body.Endpoint,
		}

		if d.Store != nil {
			if err := d.Store.SaveEntry(r.Context(), entry); err != nil {
				d.Logger.Warn("failed to persist override",
					logger.String("region", entry.RegionID),
					logger.String("product", entry.ProductCode),
					logger.Error(err))
			}
		}

		d.Logger.Info("override added",
			logger.String("region", entry.RegionID),
			logger.String("product", entry.ProductCode),
			logger.String("endpoint", entry.Hostname))

		writeJSON(w, http.StatusCreated, entry)
	}
}

// RemoveEndpoint drops a single override
func RemoveEndpoint(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		region := chi.URLParam(r, "region")
		product := chi.URLParam(r, "product")

		d.Resolver.RemoveEndpoint(region, product)
		if d.Store != nil {
			if err := d.Store.DeleteEntry(r.Context(), region, product); err != nil {
				d.Logger.Warn("failed to delete persisted override", logger.Error(err))
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ResetEndpoints drops every override, including the Redis copy
func ResetEndpoints(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Resolver.Reset()
		if d.Store != nil {
			if err := d.Store.DeleteAllEntries(r.Context()); err != nil {
				d.Logger.Warn("failed to clear persisted overrides", logger.Error(err))
			}
		}

		d.Logger.Info("overrides reset", logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusNoContent)
	}
}
