package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/ai"
	"fitcoach/backend/internal/service"
)

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"message": message})
}

// statusFor maps service errors to HTTP statuses. Zero means unexpected.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrNoEnrollment),
		errors.Is(err, service.ErrAthleteNotFound),
		errors.Is(err, service.ErrAthleteNotManaged):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidProgram),
		errors.Is(err, service.ErrInvalidWeek),
		errors.Is(err, service.ErrDuplicateProgramTitle),
		errors.Is(err, service.ErrAthleteAlreadyCoached),
		errors.Is(err, service.ErrInvalidGeneratedProgram),
		errors.Is(err, service.ErrInvalidInjury),
		errors.Is(err, service.ErrInvalidRegistration),
		errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrBudgetExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	}
	return 0
}

// respondError writes the mapped status, or logs and hides unexpected errors behind a 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	if status := statusFor(err); status != 0 {
		abortWithError(c, status, err.Error())
		return
	}
	logger.ErrorContext(c.Request.Context(), "Request failed", "error", err)
	abortWithError(c, http.StatusInternalServerError, "Internal Server Error")
}
