package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"detectserver/internal/logger"
	"detectserver/internal/media"
	"detectserver/internal/services"
)

// SessionHandler starts (POST), stops (DELETE) and reports (GET) the
// detection session. The camera is chosen from the caller's User-Agent.
func SessionHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, manager.Status())

		case http.MethodPost:
			record, err := manager.Start(r.Context(), r.UserAgent())
			switch {
			case err == nil:
				writeJSON(w, http.StatusCreated, record)
			case errors.Is(err, services.ErrSessionActive):
				writeError(w, http.StatusConflict, err)
			case errors.Is(err, media.ErrPermissionDenied), errors.Is(err, media.ErrDeviceUnavailable):
				writeError(w, http.StatusServiceUnavailable, err)
			default:
				logger.Error("Failed to start session: %v", err)
				writeError(w, http.StatusInternalServerError, err)
			}

		case http.MethodDelete:
			if err := manager.Stop(services.StopViewer); err != nil {
				if errors.Is(err, services.ErrNoSession) {
					writeError(w, http.StatusNotFound, err)
					return
				}
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
