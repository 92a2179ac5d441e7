package handler

import (
	"errors"
	"net/http"

	"github.com/Mnrljan/report-backend/pkg/logger"
	"github.com/Mnrljan/report-backend/service"
	"github.com/gin-gonic/gin"
)

// writeError translates a service error into a status code and a JSON
// message. Unexpected errors are logged and hidden from the client.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrUsernameTaken):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrTemplate):
		message = service.ErrTemplate.Error()
	case errors.Is(err, service.ErrRender):
		message = service.ErrRender.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"message": message})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
}
