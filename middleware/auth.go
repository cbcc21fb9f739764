package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carbridge/carbridge-api/utils"
)

const identityKey = "auth_identity"

// Identity is the authenticated caller, decoded from the bearer token and
// threaded through the request context. It is never derived implicitly.
type Identity struct {
	UserID  uint
	Email   string
	IsAdmin bool
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RequireAuth validates the Authorization bearer token and injects the
// caller identity into the Gin context. Requests without a valid token get
// 401; admin checks are layered separately via RequireAdmin.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_AUTHENTICATED",
					"message": "Not authenticated",
				},
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.VerifyToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid or expired token",
				},
			})
			return
		}

		SetIdentity(c, Identity{
			UserID:  claims.UserID,
			Email:   claims.Email,
			IsAdmin: claims.IsAdmin,
		})
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin flag.
// Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := GetIdentity(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_AUTHENTICATED",
					"message": "Not authenticated",
				},
			})
			return
		}

		if !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Admin access required",
				},
			})
			return
		}

		c.Next()
	}
}

// SetIdentity stores the caller identity in the Gin context (also used by
// test middleware)
func SetIdentity(c *gin.Context, identity Identity) {
	c.Set(identityKey, identity)
}

// GetIdentity extracts the caller identity from the Gin context
func GetIdentity(c *gin.Context) (Identity, error) {
	value, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, &AuthError{Code: "MISSING_IDENTITY", Message: "Identity not found in context"}
	}

	identity, ok := value.(Identity)
	if !ok {
		return Identity{}, &AuthError{Code: "INVALID_IDENTITY", Message: "Identity is not in the expected format"}
	}

	return identity, nil
}
