package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/middleware"
	"github.com/zimlearn/console-api/internal/models"
)

// claimsFromContext reads the JWT claims the auth middleware stored, nil
// when the route ran without authentication.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// canActFor reports whether the caller may read or act on the target
// user's data: their own, or anyone's for console admins.
func canActFor(claims *models.JWTClaims, userID string) bool {
	if claims == nil {
		return false
	}
	return claims.UserID == userID || claims.Role.IsAdmin()
}
