// Package middleware provides authentication and authorization middleware for the Gin web framework.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session
	UserIDKey = "user_id"
	// UsernameKey is the key used to store username in session
	UsernameKey = "username"
	// OrganizationIDKey is the key used to store the user's organization in session
	OrganizationIDKey = "organization_id"
)

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Authentication required",
		"code":  "UNAUTHORIZED",
	})
	c.Abort()
}

// sessionInt reads an integer session value, tolerating the float64 form
// JSON-roundtripped sessions store numbers in.
func sessionInt(session sessions.Session, key string) (int, bool) {
	value := session.Get(key)
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// RequireAuth returns a middleware that requires an authenticated session.
// Handlers behind it can rely on user_id, username, and organization_id
// being set on the gin context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		userID, ok := sessionInt(session, UserIDKey)
		if !ok {
			abortUnauthorized(c)
			return
		}

		orgID, ok := sessionInt(session, OrganizationIDKey)
		if !ok {
			abortUnauthorized(c)
			return
		}

		username, ok := session.Get(UsernameKey).(string)
		if !ok || username == "" {
			abortUnauthorized(c)
			return
		}

		// Store user info in context for handlers to use
		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)
		c.Set(OrganizationIDKey, orgID)

		c.Next()
	}
}

// RequireAdmin returns a middleware that requires authentication and the
// admin role.
func RequireAdmin(userService interface {
	HasRole(ctx context.Context, userID int, roleName string) (bool, error)
}) gin.HandlerFunc {
	requireAuth := RequireAuth()

	return func(c *gin.Context) {
		requireAuth(c)
		if c.IsAborted() {
			return
		}

		userID := c.GetInt(UserIDKey)
		isAdmin, err := userService.HasRole(c.Request.Context(), userID, "admin")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check admin status",
				"code":  "INTERNAL_ERROR",
			})
			c.Abort()
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
				"code":  "FORBIDDEN",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
