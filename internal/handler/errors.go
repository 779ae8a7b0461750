package handler

import (
	"errors"
	"net/http"

	"convolab/internal/transport/httpdto"
	convolab_errors "convolab/pkg/errors"

	"github.com/gin-gonic/gin"
)

func writeBindError(c *gin.Context) {
	c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
}

// writeError maps known errors to client responses. Anything else is handed
// to middleware.ErrorHandler, which answers with an opaque 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, convolab_errors.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
	case errors.Is(err, convolab_errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("Invalid credentials", "INVALID_CREDENTIALS"))
	case errors.Is(err, convolab_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("Not authenticated", "UNAUTHORIZED"))
	case errors.Is(err, convolab_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("Not found", "NOT_FOUND"))
	default:
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
	}
}
