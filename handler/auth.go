package handler

import (
	"net/http"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/middleware"
	"github.com/Mnrljan/report-backend/model"
	"github.com/Mnrljan/report-backend/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth   *service.AuthService
	config *config.AuthConfig
}

func NewAuthHandler(auth *service.AuthService, cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{auth: auth, config: cfg}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	ID        string     `json:"_id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expires_at"`
	Message   string     `json:"message,omitempty"`
}

// Register handles account creation. Field validation happens in the
// service so the client gets its message.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.Message = "Registration successful"
	c.JSON(http.StatusCreated, resp)
}

// Login handles administrator login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, service.ErrInvalidCredentials)
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetUser(c))
}

func (h *AuthHandler) issue(user *model.User) (*AuthResponse, error) {
	token, expiresAt, err := middleware.GenerateToken(user.ID, h.config)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}
