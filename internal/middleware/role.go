package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/manufacturer/lifecycle"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

const RoleKey = "role"

// RoleMiddleware lets the request through only when the session holds a
// backend token for role.
func RoleMiddleware(role tokenstore.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := GetSession(c)
		if s == nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Please log in first")
			c.Abort()
			return
		}

		if _, ok := s.Tokens.Get(role); !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Please log in as "+string(role))
			c.Abort()
			return
		}

		c.Set(RoleKey, role)
		c.Next()
	}
}

func ManufacturerOnly() gin.HandlerFunc {
	return RoleMiddleware(tokenstore.RoleManufacturer)
}

func DistributorOnly() gin.HandlerFunc {
	return RoleMiddleware(tokenstore.RoleDistributor)
}

func RFCOnly() gin.HandlerFunc {
	return RoleMiddleware(tokenstore.RoleRFC)
}

func AdminOnly() gin.HandlerFunc {
	return RoleMiddleware(tokenstore.RoleAdmin)
}

// OnboardingGate keeps a manufacturer that is not yet APPROVED on the
// onboarding flow. Mount it after ManufacturerOnly.
func OnboardingGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := GetSession(c)
		if s == nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Please log in first")
			c.Abort()
			return
		}

		account, ok := s.Account(tokenstore.RoleManufacturer)
		if ok && lifecycle.RequiresOnboarding(account.Status) {
			utils.AppErrorResponse(c, appErrors.Forbidden("ONBOARDING_REQUIRED", "Complete onboarding before using the dashboard"))
			c.Abort()
			return
		}
		c.Next()
	}
}
