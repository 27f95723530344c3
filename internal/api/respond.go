package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"membership-ledger-go/internal/billing"
	"membership-ledger-go/internal/models"
	"membership-ledger-go/internal/store"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// writeError maps domain errors onto HTTP statuses. Internal errors are logged
// and masked.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidArgument):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInsufficientBalance):
		writeErrorStatus(w, http.StatusBadRequest, "insufficient reward balance")
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrConcurrentModification):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrInvalidCredentials):
		writeErrorStatus(w, http.StatusUnauthorized, billing.ErrInvalidCredentials.Error())
	default:
		zap.L().Error("internal error", zap.Error(err))
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}
