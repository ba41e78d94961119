package handlers

import (
	"net/http"

	"reliefapp/internal/config"
	"reliefapp/internal/middleware"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	"reliefapp/internal/services"
	contextutils "reliefapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		config:      cfg,
		logger:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"display_name":    user.Name(),
		"organization_id": user.OrganizationID,
		"roles":           user.Roles,
	}
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	span.SetAttributes(
		attribute.String("auth.username", req.Username),
	)

	user, err := h.userService.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "Authentication failed", map[string]interface{}{
			"username": req.Username,
		})
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.Int("organization.id", user.OrganizationID),
	)

	if err := h.userService.UpdateLastActive(c.Request.Context(), user.ID); err != nil {
		// Log but don't fail login
		h.logger.Warn(c.Request.Context(), "Failed to update last active", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, user.ID)
	session.Set(middleware.UsernameKey, user.Username)
	session.Set(middleware.OrganizationIDKey, user.OrganizationID)

	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err, nil)
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    userResponse(user),
	})
}

// Logout handles user logout requests
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	if userID := session.Get(middleware.UserIDKey); userID != nil {
		if id, ok := userID.(int); ok {
			span.SetAttributes(attribute.Int("user.id", id))
		}
	}

	session.Clear()
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

// Status returns the current authentication status
func (h *AuthHandler) Status(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "status")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		span.SetAttributes(attribute.Bool("auth.authenticated", false))
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			// Stale session for a deleted user
			session := sessions.Default(c)
			session.Clear()
			if saveErr := session.Save(); saveErr != nil {
				h.logger.Error(c.Request.Context(), "Error saving session", saveErr, nil)
			}
			c.JSON(http.StatusOK, gin.H{
				"authenticated": false,
				"user":          nil,
			})
			return
		}
		h.logger.Error(c.Request.Context(), "Error getting user by ID", err, map[string]interface{}{
			"user_id": userID,
		})
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("auth.authenticated", true),
		attribute.Int("user.id", user.ID),
	)

	if err := h.userService.UpdateLastActive(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn(c.Request.Context(), "Error updating last active", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          userResponse(user),
	})
}

// Check is a lightweight auth-check endpoint intended for reverse proxy
// auth_request; RequireAuth rejects unauthenticated callers with 401 first.
func (h *AuthHandler) Check(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
