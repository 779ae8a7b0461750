package handler

import (
	"database/sql"
	"net/http"

	"convolab/internal/transport/httpdto"
	"convolab/pkg/database"

	"github.com/gin-gonic/gin"
)

const welcomeMessage = "Welcome to Convo Lab AI Backend"

type RootHandler struct {
	db *sql.DB
}

func NewRootHandler(db *sql.DB) *RootHandler {
	return &RootHandler{db: db}
}

// Root answers uptime probes; HEAD gets an empty 200.
func (h *RootHandler) Root(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, httpdto.MessageResponse{Message: welcomeMessage})
}

func (h *RootHandler) Health(c *gin.Context) {
	if err := database.HealthCheck(c.Request.Context(), h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
		return
	}
	c.JSON(http.StatusOK, httpdto.HealthResponse{Status: "healthy"})
}
