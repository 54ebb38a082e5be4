package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/location"
)

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeResolveError maps resolver failures to HTTP statuses:
// 400 unknown region or product, 404 no endpoint, 502 location service
// failures, 500 local failures building the location request.
func writeResolveError(w http.ResponseWriter, err error) {
	var re *domain.ResolveError
	if errors.As(err, &re) {
		status := http.StatusInternalServerError
		switch re.Kind {
		case domain.KindInvalidRegion, domain.KindInvalidProduct:
			status = http.StatusBadRequest
		case domain.KindNoEndpoint:
			status = http.StatusNotFound
		case domain.KindTransport, domain.KindInvalidResponse:
			status = http.StatusBadGateway
		case domain.KindClient:
			status = http.StatusInternalServerError
		}
		writeError(w, status, re.Code, re.Message)
		return
	}

	var se *location.ServerError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Code:      se.Code,
			Message:   se.Message,
			RequestID: se.RequestID,
		})
		return
	}

	writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
}
