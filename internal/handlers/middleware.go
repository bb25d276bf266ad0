package handlers

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rental-service/internal/apperr"
	"rental-service/internal/metrics"
	"rental-service/internal/services"
)

type Middleware struct {
	userService *services.UserService
	metrics     *metrics.Metrics
}

func NewMiddleware(userService *services.UserService, m *metrics.Metrics) *Middleware {
	return &Middleware{
		userService: userService,
		metrics:     m,
	}
}

// Authenticate requires a live bearer token and stores the caller's identity
// on the context.
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondError(c, apperr.Unauthorized("authorization header required"))
			return
		}
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			respondError(c, apperr.Unauthorized("authorization header must be a bearer token"))
			return
		}

		claims, err := m.userService.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, string(claims.Role))
		c.Set(ctxSessionID, claims.SessionID)
		c.Next()
	}
}

// RequestLogger logs every request and records its latency.
func (m *Middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		if m.metrics != nil {
			m.metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
			m.metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
			"user_id", c.GetString(ctxUserID))
	}
}
