package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"versus-be/internal/domain"
	"versus-be/internal/middleware"
	"versus-be/pkg/errors"
	"versus-be/pkg/logger"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an error onto the HTTP error taxonomy and writes it. The
// domain's sentinel errors carry the status decision; anything unrecognized is
// a 500 with the detail kept server-side.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := toAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).Debug("Request rejected")
	}

	requestID, _ := r.Context().Value(middleware.RequestIDContextKey).(string)

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	respondJSON(w, appErr.StatusCode, response)
}

func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrTestNotFound),
		stderrors.Is(err, domain.ErrOptionNotFound),
		stderrors.Is(err, domain.ErrSessionNotFound),
		stderrors.Is(err, domain.ErrCategoryNotFound):
		return errors.NewNotFoundError(err.Error())
	case stderrors.Is(err, domain.ErrValidation),
		stderrors.Is(err, domain.ErrInvalidChoice),
		stderrors.Is(err, domain.ErrTestInactive):
		return errors.NewValidationError(err.Error(), nil)
	case stderrors.Is(err, domain.ErrSessionConflict),
		stderrors.Is(err, domain.ErrSessionComplete):
		return errors.NewConflictError(err.Error())
	case stderrors.Is(err, domain.ErrUnauthorized):
		return errors.NewAuthorizationError(err.Error())
	default:
		return errors.NewInternalError("internal server error", err)
	}
}
