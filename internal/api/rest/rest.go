package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsend/webhook-engine/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Delivery trigger (requires authentication)
		v1.POST("/deliveries", middleware.Auth(authCfg), handler.CreateDelivery)

		// Webhook management (requires authentication)
		v1.POST("/webhooks", middleware.Auth(authCfg), handler.CreateWebhook)
		v1.GET("/webhooks", middleware.Auth(authCfg), handler.ListWebhooks)
		v1.GET("/webhooks/:id", middleware.Auth(authCfg), handler.GetWebhook)
		v1.PUT("/webhooks/:id/conditions", middleware.Auth(authCfg), handler.SetConditions)
		v1.GET("/webhooks/:id/logs", middleware.Auth(authCfg), handler.ListLogs)

		// Secret issuance and rotation disclose plaintext, so they require
		// machine credentials (API key only)
		v1.POST("/webhooks/:id/secret", middleware.APIKeyAuth(authCfg), handler.SecretAction)
		v1.POST("/webhooks/:id/secret/rotate", middleware.APIKeyAuth(authCfg), handler.RotateSecret)

		// URL validation preflight (requires authentication)
		v1.POST("/urls/validate", middleware.Auth(authCfg), handler.ValidateURL)
	}
}
