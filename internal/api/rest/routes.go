package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawmed/billing-service/internal/api/rest/handlers"
	restmiddleware "github.com/pawmed/billing-service/internal/api/rest/middleware"
	"github.com/pawmed/billing-service/internal/middleware"
	"github.com/pawmed/billing-service/pkg/logger"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Payment *handlers.PaymentHandler
	Card    *handlers.CardHandler
	Renewal *handlers.RenewalHandler
	Catalog *handlers.CatalogHandler
}

// SetupRouter wires middleware and routes onto a gin engine.
func SetupRouter(h Handlers, auth *middleware.JWTMiddleware, registry *prometheus.Registry, log *logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(restmiddleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/catalog", h.Catalog.Get)

		// Checkout and reconciliation identify the user in the body; the
		// gateway status fetch is what makes reconciliation trustworthy
		v1.POST("/payment-intent", h.Payment.CreateIntent)
		v1.POST("/reconcile", h.Payment.Reconcile)
		v1.POST("/renewal", h.Renewal.Set)

		// The card vault and history are scoped to the token subject
		authed := v1.Group("")
		authed.Use(auth.RequireAuth())
		{
			authed.GET("/transactions", h.Payment.ListTransactions)

			cards := authed.Group("/cards")
			{
				cards.GET("", h.Card.List)
				cards.POST("", h.Card.Add)
				cards.PATCH("/:id", h.Card.SetDefault)
				cards.DELETE("/:id", h.Card.Delete)
			}
		}
	}

	return r
}
