package handlers

import (
	"net/http"
	"strconv"

	"detectserver/internal/logger"
	"detectserver/internal/repository"
)

// GetSessionsHandler returns the recent session history as JSON.
func GetSessionsHandler(sessions repository.SessionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), 20)
		if limit > 500 {
			limit = 500
		}

		recent, err := sessions.GetRecent(limit)
		if err != nil {
			logger.Error("Failed to load sessions: %v", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		total, err := sessions.GetTotalCount()
		if err != nil {
			logger.Error("Failed to count sessions: %v", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sessions": recent,
			"total":    total,
		})
	}
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
