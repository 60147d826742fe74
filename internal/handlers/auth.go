package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamtask-api/internal/constants"
	"github.com/yukikurage/teamtask-api/internal/dto"
	apierrors "github.com/yukikurage/teamtask-api/internal/errors"
	"github.com/yukikurage/teamtask-api/internal/middleware"
	"github.com/yukikurage/teamtask-api/internal/services"
)

// AdminBootstrap is the administrator account POST /api/admin/init creates.
type AdminBootstrap struct {
	Email    string
	Password string
	Name     string
}

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	bootstrap   AdminBootstrap
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, bootstrap AdminBootstrap) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		bootstrap:   bootstrap,
	}
}

// Signup registers a new user. Presenting the configured admin code grants
// the admin role.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		Name      string `json:"name" binding:"required"`
		AdminCode string `json:"adminCode"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		AdminCode: req.AdminCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	session.Set(constants.ContextKeyRole, string(user.Role))
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// InitAdmin creates the configured bootstrap administrator once.
func (h *AuthHandler) InitAdmin(c *gin.Context) {
	user, err := h.authService.InitAdmin(h.bootstrap.Email, h.bootstrap.Password, h.bootstrap.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Admin user created",
		"user":    dto.ToUserDTO(*user),
	})
}
