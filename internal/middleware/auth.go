package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/stepup-orders/internal/auth"
)

const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	ValidateToken(token string) (auth.Identity, error)
}

// AuthMiddleware requires a valid "Authorization: Bearer <jwt>" header and
// stores the caller's ID and role in the gin context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "Authorization header required (Bearer token)")
			return
		}

		// 2. --- Validate Token ---
		id, err := tokens.ValidateToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(UserRoleKey, id.Role)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !id.IsAdmin() {
			abort(c, http.StatusForbidden, "Access denied")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	userID, ok := c.Get(UserIDKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := userID.(int64)
	if !ok {
		return auth.Identity{}, false
	}
	return auth.Identity{UserID: id, Role: c.GetString(UserRoleKey)}, true
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
