package middleware

import (
	"net/http"

	"github.com/erp/collections/internal/infrastructure/auth"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for the role gate
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
}

// RequireRole lets the request through when the caller's role is at least
// required. Must run after JWTAuthMiddleware.
func RequireRole(required auth.Role) gin.HandlerFunc {
	return RequireRoleWithConfig(required, PermissionConfig{})
}

// RequireRoleWithConfig is RequireRole with custom config
func RequireRoleWithConfig(required auth.Role, cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
			return
		}

		if !claims.Role.Allows(required) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Role check failed",
					zap.String("user_id", claims.UserID),
					zap.String("role", string(claims.Role)),
					zap.String("required", string(required)),
					zap.String("path", c.Request.URL.Path),
				)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Role "+string(required)+" or higher is required", getRequestID(c)))
			return
		}

		c.Next()
	}
}
