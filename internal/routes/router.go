package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vltd-dashboard/internal/config"
	"vltd-dashboard/internal/delivery/http/handler"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/logger"
	"vltd-dashboard/internal/middleware"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/tokenstore"
	"vltd-dashboard/internal/usecase/activation"
	"vltd-dashboard/internal/usecase/assignment"
	"vltd-dashboard/internal/usecase/onboarding"
)

// HealthChecker is implemented by the document cache database.
type HealthChecker interface {
	Health() error
}

// BrokerStatus is implemented by the MQTT client.
type BrokerStatus interface {
	IsConnected() bool
}

type Dependencies struct {
	Config      *config.Config
	DB          HealthChecker
	Broker      BrokerStatus
	Sessions    *session.Registry
	Manager     *session.Manager
	Assignments *assignment.Service
	Onboarding  *onboarding.Service
}

func SetupRoutes(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, metrics, security headers, CORS, request size, session, rate limit
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(
		middleware.UploadSizeLimit(cfg.Upload.MaxBytes, len(organization.RequiredDocuments)),
	))
	router.Use(middleware.SessionMiddleware(deps.Manager, deps.Sessions, cfg.Session.CookieName))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", healthHandler(deps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(deps.Manager, deps.Sessions, handler.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Server.Environment == "production",
	})
	inventoryHandler := handler.NewInventoryHandler(deps.Assignments)
	onboardingHandler := handler.NewOnboardingHandler(deps.Onboarding, cfg.Upload.MaxBytes)
	adminHandler := handler.NewAdminHandler(deps.Onboarding)
	exportHandler := handler.NewExportHandler()

	v1 := router.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		manufacturer := v1.Group("/manufacturer")
		manufacturer.Use(middleware.ManufacturerOnly())
		{
			onboardingHandler.RegisterRoutes(manufacturer)

			dashboard := manufacturer.Group("")
			dashboard.Use(middleware.OnboardingGate())
			inventoryHandler.RegisterManufacturerRoutes(dashboard)
			exportHandler.RegisterManufacturerRoutes(dashboard)
		}

		distributor := v1.Group("/distributor")
		distributor.Use(middleware.DistributorOnly())
		{
			inventoryHandler.RegisterDistributorRoutes(distributor)
			exportHandler.RegisterDistributorRoutes(distributor)
		}

		rfc := v1.Group("/rfc")
		rfc.Use(middleware.RFCOnly())
		{
			inventoryHandler.RegisterRFCRoutes(rfc)
			handler.NewActivationHandler(activation.VariantRFC).RegisterRoutes(rfc)
			handler.NewMapHandler(tokenstore.RoleRFC).RegisterRoutes(rfc)
			exportHandler.RegisterRFCRoutes(rfc)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			adminHandler.RegisterRoutes(admin)
			handler.NewActivationHandler(activation.VariantAdmin).RegisterRoutes(admin)
			handler.NewMapHandler(tokenstore.RoleAdmin).RegisterRoutes(admin)
			exportHandler.RegisterAdminRoutes(admin)
		}
	}

	logger.Info("All routes initialized")
	return router
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := gin.H{"database": "up", "mqtt": "disabled"}
		status := http.StatusOK

		if deps.DB != nil {
			if err := deps.DB.Health(); err != nil {
				components["database"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		if deps.Broker != nil {
			components["mqtt"] = "down"
			if deps.Broker.IsConnected() {
				components["mqtt"] = "up"
			}
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":     state,
			"components": components,
			"sessions":   deps.Sessions.Len(),
		})
	}
}
