package middleware

import (
	"net/http"

	"convolab/internal/transport/httpdto"
	"convolab/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error as an opaque 500.
// The detail is logged, never returned.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Internal Server Error", "INTERNAL_ERROR"))
	}
}
