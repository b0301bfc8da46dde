package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/session"
)

const SessionKey = "session"

// SessionMiddleware attaches the operator session named by the session cookie
// or a Bearer token. Requests without a valid session pass through; login
// handlers start one and RequireRole rejects the rest.
func SessionMiddleware(manager *session.Manager, sessions *session.Registry, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		id, err := manager.Verify(token)
		if err != nil {
			logger.Debug("Ignoring session token",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if s, ok := sessions.Get(id); ok {
			c.Set(SessionKey, s)
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// GetSession returns the session attached by SessionMiddleware, or nil.
func GetSession(c *gin.Context) *session.Session {
	if v, exists := c.Get(SessionKey); exists {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}
