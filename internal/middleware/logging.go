package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/tokenstore"
)

// LoggingMiddleware logs each request once it completes, tagged with the
// request id and, when known, the operator session and role.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		log := logger.WithRequestID(GetRequestID(c))
		log.Debug("Incoming request",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
		)

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("status_code", statusCode),
			zap.Duration("latency", time.Since(start)),
		}
		if s := GetSession(c); s != nil {
			fields = append(fields, zap.String("session_id", s.ID))
		}
		if role, ok := c.Get(RoleKey); ok {
			if r, ok := role.(tokenstore.Role); ok {
				fields = append(fields, zap.String("role", string(r)))
			}
		}
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			fields = append(fields, zap.String("error", errorMessage))
		}

		switch {
		case statusCode >= 500:
			log.Error("Request completed with server error", fields...)
		case statusCode >= 400:
			log.Warn("Request completed with client error", fields...)
		default:
			log.Info("Request completed successfully", fields...)
		}
	}
}
