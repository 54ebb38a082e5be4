package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/endpointd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/endpointd/internal/logger"
)

// FlushLocationCache drops every remembered location answer, in memory and
// in Redis, so the next resolution asks the location service again.
func FlushLocationCache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc := d.Resolver.Location()
		if loc == nil {
			writeError(w, http.StatusConflict, "LocationDisabled", "the location service is not queried, nothing to flush")
			return
		}

		if d.Store != nil {
			if err := d.Store.FlushLocationEntries(r.Context()); err != nil {
				d.Logger.Error("failed to flush persisted location answers", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "InternalError", "failed to flush persisted location answers")
				return
			}
		}

		dropped := loc.Purge()
		d.Logger.Info("location cache flushed",
			logger.Int("dropped", dropped),
			logger.String("remote_ip", r.RemoteAddr))

		writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
	}
}
