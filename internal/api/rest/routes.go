package rest

import (
	"github.com/ankhbayar/entitlement-service/internal/api/rest/handlers"
	"github.com/ankhbayar/entitlement-service/internal/api/rest/middleware"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Purchase    *handlers.PurchaseHandler
	Entitlement *handlers.EntitlementHandler
	Content     *handlers.ContentHandler
	Auth        *middleware.AuthMiddleware
}

// SetupRouter configures the gin router with routes and middleware.
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		purchase := v1.Group("/purchase")
		{
			purchase.POST("/open", h.Auth.RequireAuth(), h.Purchase.Open)
			purchase.POST("/check", h.Auth.RequireAuth(), h.Purchase.Check)
			// The gateway calls back without platform credentials.
			purchase.POST("/callback", h.Purchase.Callback)
		}

		v1.GET("/entitlement/status", h.Auth.OptionalAuth(), h.Entitlement.Status)

		content := v1.Group("/content", h.Auth.OptionalAuth())
		{
			content.GET("", h.Content.List)
			content.GET("/gate", h.Content.Gate)
			content.GET("/:id", h.Content.Get)
		}

		admin := v1.Group("/admin", h.Auth.RequireAuth(), h.Auth.RequireAdmin())
		{
			admin.PATCH("/accounts/:id", h.Entitlement.AdminPatch)
		}
	}

	return r
}
