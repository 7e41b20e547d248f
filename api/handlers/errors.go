package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/linesmerrill/sentinel-campus-api/api"
	"github.com/linesmerrill/sentinel-campus-api/config"
	"github.com/linesmerrill/sentinel-campus-api/databases"
	"github.com/linesmerrill/sentinel-campus-api/triage"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, triage.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, databases.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, databases.ErrVersionConflict), errors.Is(err, databases.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, api.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// errorResponse writes err with the status its kind maps to
func errorResponse(w http.ResponseWriter, message string, err error) {
	config.ErrorStatus(message, statusFor(err), w, err)
}
