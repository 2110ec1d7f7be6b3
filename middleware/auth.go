package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskassign/constants"
	"taskassign/models"
	"taskassign/services"
)

const userKey = "user"

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			var svcErr *services.Error
			if errors.As(err, &svcErr) && errors.Is(err, services.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": svcErr.Msg})
				return
			}
			log.Printf("[auth] request_id=%s: %v", RequestIDFrom(c), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the caller loaded by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}

func RoleMiddleware(allowedRoles ...constants.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(userKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in context"})
			return
		}

		userRole := v.(*models.User).Role()
		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}
