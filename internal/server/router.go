package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studio-booking/internal/app"
	"studio-booking/internal/config"
)

// NewRouter wires the public booking API, the operator endpoints and the
// shared middleware.
func NewRouter(a *app.App, cfg config.Config, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(app.MethodNotAllowedHandler)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})

	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:             []string{"Content-Length", requestIDHeader},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(RateLimit(cfg.MaxRequestsPerMin, logger))
	{
		api.GET("/get-events", a.GetEventsHandler)
		api.OPTIONS("/get-events", app.PreflightHandler)

		api.POST("/create-event", a.CreateEventHandler)
		api.OPTIONS("/create-event", app.PreflightHandler)

		api.GET("/month-availability", a.MonthAvailabilityHandler)
		api.OPTIONS("/month-availability", app.PreflightHandler)

		api.GET("/studio", a.StudioHandler)
		api.OPTIONS("/studio", app.PreflightHandler)

		if len(cfg.Auth.StaticTokens) > 0 || cfg.Auth.JWTSecret != "" {
			admin := api.Group("/admin")
			admin.Use(app.AdminAuthMiddleware(cfg.Auth))
			{
				admin.GET("/config-check", a.ConfigCheckHandler)
			}
		} else {
			logger.Info("admin endpoints disabled: no STATIC_TOKENS or JWT_HMAC_SECRET configured")
		}
	}

	return router
}
