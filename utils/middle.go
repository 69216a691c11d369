package utils

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/repo"

	"github.com/gin-gonic/gin"
)

const (
	CtxClaims   = "admin_claims"
	CtxUsername = "username"
)

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AdminMiddleware requires a valid, non-revoked admin session token.
// With ADMIN_AUTH_ENABLED=false every request passes through.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.AppConfig.AdminAuthEnabled {
			c.Next()
			return
		}
		RequireAdmin(c)
	}
}

// RequireAdmin enforces a session regardless of ADMIN_AUTH_ENABLED. Session
// endpoints use it directly. Without a usable JWT_SECRET, or when the
// revocation store cannot answer, no token is accepted.
func RequireAdmin(c *gin.Context) {
	if !config.AppConfig.JWTConfigured() {
		Fail(c, apperr.Unavailable("Admin authentication is not configured"))
		return
	}
	token, ok := BearerToken(c)
	if !ok {
		Fail(c, apperr.Unauthorized("Admin session required"))
		return
	}
	claims, err := VerifyToken(token)
	if err != nil {
		Fail(c, apperr.Unauthorized("Invalid or expired session"))
		return
	}
	revoked, err := repo.IsTokenRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		logger.L.Error("token revocation check failed", "jti", claims.ID, "error", err)
		Fail(c, apperr.Unavailable("Session revocation check failed"))
		return
	}
	if revoked {
		Fail(c, apperr.Unauthorized("Session has been revoked"))
		return
	}
	c.Set(CtxClaims, claims)
	c.Set(CtxUsername, claims.Username)
	c.Next()
}

// ClaimsFrom returns the claims stored by RequireAdmin.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// RequestLogger logs every request with a level chosen by response status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// Recovery turns a panic into the {error, path} envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if log != nil {
					log.Error("panic recovered", "path", c.Request.URL.Path, "panic", fmt.Sprint(r))
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
					"path":  c.Request.URL.Path,
				})
			}
		}()
		c.Next()
	}
}

// NotFound is the catch-all for unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "Route not found",
		"path":  c.Request.URL.Path,
	})
}
