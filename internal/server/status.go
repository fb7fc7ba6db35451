package server

import (
	"errors"
	"net/http"

	"smartcal/internal/extract"
	"smartcal/internal/models"
)

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var authErr *models.AuthError
	var apiErr *models.APIError
	switch {
	case extract.IsExtractionFailure(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &authErr):
		if authErr.Kind == models.AuthInsufficientPermission {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
