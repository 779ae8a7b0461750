// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"errors"
	"net/http"

	"convolab/internal/services"
	"convolab/internal/transport/httpdto"
	convolab_errors "convolab/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles signup, login and the current-user endpoint.
type AuthHandler struct {
	service *services.AuthService
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Signup handles user registration.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req httpdto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c)
		return
	}

	created, err := h.service.Signup(c.Request.Context(), services.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, convolab_errors.ErrAlreadyExists) {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Email already exists", "EMAIL_EXISTS"))
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewUserResponse(created))
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c)
		return
	}

	res, err := h.service.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.LoginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   res.ExpiresIn,
		User:        httpdto.NewUserResponse(res.User),
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("Not authenticated", "UNAUTHORIZED"))
		return
	}

	u, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewUserResponse(u))
}
