package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	serviceErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/service"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

var errForbiddenSender = errors.New("sender does not match the authenticated subject")

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps service errors onto HTTP statuses; anything
// unrecognised is logged and hidden behind a generic 500.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, serviceErrors.ErrInvalidPrice),
		errors.Is(err, serviceErrors.ErrInvalidAmount),
		errors.Is(err, serviceErrors.ErrInvalidSide),
		errors.Is(err, serviceErrors.ErrInvalidDenom),
		errors.Is(err, serviceErrors.ErrInvalidSender):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, serviceErrors.ErrOrderAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, serviceErrors.ErrRateLimitExceeded):
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, serviceErrors.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errForbiddenSender):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error(ctx, "request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
