package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/kanboard/internal/apperr"
	"github.com/starford/kanboard/internal/kanban"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors onto HTTP statuses. A missing file is a
// LoadError that also matches ErrNotFound, so NotFound is checked first.
func writeError(w http.ResponseWriter, op string, err error) {
	var le *apperr.LoadError
	var we *apperr.WriteError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("version mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("document already exists"))
	case errors.As(err, &le):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(le.Error()))
	case errors.Is(err, kanban.ErrSessionBusy), errors.Is(err, kanban.ErrNotDragging):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &we):
		slog.Error(op+" failed", slog.String("path", we.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("write failed"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
