package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

const TenantIDKey = "tenant_id"

// AdminAuthMiddleware guards the admin API. Tokens are HMAC-signed JWTs
// minted by the external admin workflow; the core only validates them and
// pulls the tenant id claim so every downstream call is explicitly scoped.
type AdminAuthMiddleware struct {
	log       *logger.Logger
	jwtSecret string
}

func NewAdminAuthMiddleware(log *logger.Logger, jwtSecret string) *AdminAuthMiddleware {
	middlewareLog := log.With("middleware", "AdminAuthMiddleware")
	return &AdminAuthMiddleware{log: middlewareLog, jwtSecret: jwtSecret}
}

func (am *AdminAuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		tenantID, err := am.tenantFromToken(tokenString)
		if err != nil {
			am.log.Warn("Admin token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

func (am *AdminAuthMiddleware) tenantFromToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(am.jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	raw, ok := claims[TenantIDKey].(string)
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("missing tenant_id claim")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed tenant_id claim: %w", err)
	}
	return tenantID, nil
}

// TenantID pulls the tenant scope the middleware attached to the request.
func TenantID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	tenantID, ok := value.(uuid.UUID)
	return tenantID, ok
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
