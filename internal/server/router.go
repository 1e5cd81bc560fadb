package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-backend/internal/handlers"
	"github.com/chatwire/chatwire-backend/internal/middleware"
)

type RouterConfig struct {
	WebhookHandler      *handlers.WebhookHandler
	KnowledgeHandler    *handlers.KnowledgeHandler
	ConversationHandler *handlers.ConversationHandler
	AdminMiddleware     *middleware.AdminAuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/webhook", cfg.WebhookHandler.Verify)
	router.POST("/webhook", cfg.WebhookHandler.Receive)

	// ===============
	// || Admin     ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AdminMiddleware.RequireAuth())
	{
		api.GET("/knowledge", cfg.KnowledgeHandler.List)
		api.POST("/knowledge", cfg.KnowledgeHandler.Create)
		api.GET("/knowledge/:id", cfg.KnowledgeHandler.Get)
		api.PUT("/knowledge/:id", cfg.KnowledgeHandler.Update)
		api.DELETE("/knowledge/:id", cfg.KnowledgeHandler.Deactivate)

		api.GET("/conversations", cfg.ConversationHandler.List)
		api.GET("/conversations/:id/messages", cfg.ConversationHandler.Messages)
		api.POST("/conversations/:id/takeover", cfg.ConversationHandler.Takeover)
		api.POST("/conversations/:id/handback", cfg.ConversationHandler.Handback)
	}

	return router
}
