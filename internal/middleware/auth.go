package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys populated by AuthRequired.
const (
	ContextClientIDKey = "clientID"
	ContextRoleKey     = "role"
)

// Role names carried in the token's "role" claim.
const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
)

// AuthRequired returns middleware that validates a Bearer access token and
// injects the caller's client id and role into the request context. Token
// issuing belongs to the auth service; this only verifies the HS256
// signature with the shared secret.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		clientID, ok := subjectID(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid subject"})
			return
		}

		role, _ := claims["role"].(string)

		c.Set(ContextClientIDKey, clientID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole returns middleware that aborts with 403 unless the
// authenticated caller holds one of the given roles. Must run after
// AuthRequired.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role, ok := c.Get(ContextRoleKey)
		if !ok || !allowed[role.(string)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ClientID extracts the authenticated caller's client id from the context.
func ClientID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextClientIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// subjectID reads the "sub" claim, which may arrive as a JSON number or a
// string-encoded integer depending on the issuer.
func subjectID(claims jwt.MapClaims) (int64, bool) {
	switch sub := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	case float64:
		if sub <= 0 {
			return 0, false
		}
		return int64(sub), true
	default:
		return 0, false
	}
}
