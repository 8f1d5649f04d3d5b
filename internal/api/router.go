package api

import (
	"context"

	v1 "github.com/creditrail/creditrail/internal/api/v1"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Handlers groups the route handlers for injection
type Handlers struct {
	fx.In

	Health  *v1.HealthHandler
	Webhook *v1.WebhookHandler
	Account *v1.AccountHandler
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware())

	router.GET("/health", handlers.Health.Health)
	router.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)

	apiV1 := router.Group("/v1")
	{
		accounts := apiV1.Group("/accounts")
		{
			accounts.POST("", handlers.Account.Create)
			accounts.GET("/:id/balance", handlers.Account.GetBalance)
			accounts.GET("/:id/transactions", handlers.Account.ListTransactions)
			accounts.GET("/:id/grants/preview", handlers.Account.PreviewGrant)
		}
	}

	return router
}

// requestIDMiddleware attaches a request id to the context for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = types.GenerateUUID()
		}
		ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
