package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aiscientist/hazardwatch/internal/lifecycle"
)

// handleStoreError maps store errors to HTTP responses. Returns true if an
// error was written.
func handleStoreError(w http.ResponseWriter, err error, alertID string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		http.Error(w, "Alert not found", http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Store error", "error", err, "alert_id", alertID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
	return true
}
