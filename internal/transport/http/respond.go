package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/itemhub/action-analytics/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("action_analytics.http.encode_response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)
	writeJSON(w, appErr.StatusCode, appErr)
}
