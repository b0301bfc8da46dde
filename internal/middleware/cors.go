package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/config"
)

// CORSMiddleware allows the dashboard front end to call the API. The session
// cookie needs AllowCredentials with explicit origins.
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = !cfg.AllowCredentials
		if cfg.AllowCredentials {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	}

	return cors.New(corsConfig)
}
