package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticketwatch/backend/internal/models"
	"github.com/ticketwatch/backend/internal/utils"
	"gorm.io/gorm"
)

// AuthMiddleware verifies JWT tokens and adds the caller's identity to
// the context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("profile_id", claims.ProfileID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// AdminMiddleware ensures the caller holds the admin role. The role is
// resolved from the profiles table on every request; a role claim in
// the token is never trusted.
func AdminMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID, exists := c.Get("profile_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		var profile models.Profile
		if err := db.First(&profile, "id = ?", profileID.(uuid.UUID)).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		if !profile.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ProfileID returns the authenticated caller's profile id from the
// context
func ProfileID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("profile_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// extractToken gets the token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	parts := strings.Split(bearerToken, " ")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
