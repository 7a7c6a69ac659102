package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/skyfence/gpswatch/internal/storage/sqlite"
	"github.com/skyfence/gpswatch/pkg/logger"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Handler serves the read-only results endpoints
type Handler struct {
	results *sqlite.ResultStore
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(results *sqlite.ResultStore, log *logger.Logger) *Handler {
	return &Handler{
		results: results,
		logger:  log.Named("api-handler"),
	}
}

// GetGapSessions returns persisted gap sessions, optionally filtered by
// aircraft via ?aircraft=<icao24>.
func (h *Handler) GetGapSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	sessions, err := h.results.ListGapSessions(r.URL.Query().Get("aircraft"), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list gap sessions", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list gap sessions")
		return
	}

	writeJSON(w, map[string]interface{}{
		"count":        len(sessions),
		"gap_sessions": sessions,
	})
}

// GetJumpEvents returns persisted jump events, optionally filtered by
// aircraft via ?aircraft=<icao24>.
func (h *Handler) GetJumpEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	events, err := h.results.ListJumpEvents(r.URL.Query().Get("aircraft"), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list jump events", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jump events")
		return
	}

	writeJSON(w, map[string]interface{}{
		"count":       len(events),
		"jump_events": events,
	})
}

// GetWindows returns the processed-window ledger.
func (h *Handler) GetWindows(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r)

	windows, err := h.results.ListWindows(limit)
	if err != nil {
		h.logger.Error("Failed to list windows", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list windows")
		return
	}

	writeJSON(w, map[string]interface{}{
		"count":   len(windows),
		"windows": windows,
	})
}

// GetHealth returns a basic liveness response.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
