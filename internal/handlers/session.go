package handlers

import (
	"reliefapp/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetUserIDFromSession retrieves the current user ID from the session.
// Returns (0, false) if not authenticated or if the stored value is invalid.
func GetUserIDFromSession(c *gin.Context) (int, bool) {
	session := sessions.Default(c)
	userID := session.Get(middleware.UserIDKey)
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(int)
	if !ok {
		return 0, false
	}
	return id, true
}

// principal reads the authenticated identity RequireAuth placed on the gin
// context. Handlers behind the auth middleware can rely on ok == true.
func principal(c *gin.Context) (userID, orgID int, ok bool) {
	userID = c.GetInt(middleware.UserIDKey)
	orgID = c.GetInt(middleware.OrganizationIDKey)
	if userID == 0 || orgID == 0 {
		return 0, 0, false
	}
	return userID, orgID, true
}
