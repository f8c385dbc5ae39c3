package handlers

import (
	"errors"
	"net/http"

	"github.com/dom/learnplay/internal/api/response"
	"github.com/dom/learnplay/internal/domain"
	"go.uber.org/zap"
)

// writeError maps service errors onto the error envelope. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, domain.ReasonValidation, verr.Error())
	case errors.Is(err, domain.ErrValidation):
		response.Error(w, http.StatusBadRequest, domain.ReasonValidation, err.Error())
	case errors.Is(err, domain.ErrEmailExists):
		response.Error(w, http.StatusConflict, "EMAIL_EXISTS", "User already exists, please login")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	default:
		log.Error("["+op+"] request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func authRequired(w http.ResponseWriter) {
	response.Error(w, http.StatusUnauthorized, domain.ReasonUnauthenticated, "Not authenticated")
}
