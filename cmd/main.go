package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/chatwire/chatwire-backend/internal/clients/openai"
	redisclient "github.com/chatwire/chatwire-backend/internal/clients/redis"
	"github.com/chatwire/chatwire-backend/internal/clients/whatsapp"
	"github.com/chatwire/chatwire-backend/internal/db"
	"github.com/chatwire/chatwire-backend/internal/handlers"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/middleware"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/server"
	"github.com/chatwire/chatwire-backend/internal/services"
	"github.com/chatwire/chatwire-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	verifyToken := utils.GetEnv("WEBHOOK_VERIFY_TOKEN", "", log)
	appSecret := utils.GetEnv("WHATSAPP_APP_SECRET", "", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	tokenMasterSecret := utils.GetEnv("TOKEN_MASTER_SECRET", "", log)
	sendRate := utils.GetEnvAsInt("DISPATCH_MESSAGES_PER_SECOND", 10, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	connectionRepo := repos.NewConnectionRepo(thePG, log)
	chatbotRepo := repos.NewChatbotRepo(thePG, log)
	chatbotNodeRepo := repos.NewChatbotNodeRepo(thePG, log)
	chatbotTriggerRepo := repos.NewChatbotTriggerRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)
	conversationStateRepo := repos.NewConversationStateRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)
	knowledgeEntryRepo := repos.NewKnowledgeEntryRepo(thePG, log)
	responseCacheRepo := repos.NewResponseCacheRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	openaiClient := openai.NewClient(log)
	whatsappClient := whatsapp.NewClient(log)
	dedupStore, err := redisclient.NewDedupStore(log)
	if err != nil {
		log.Warn("Redis init failed, using in-process dedup", "error", err)
		dedupStore = redisclient.NewMemoryDedupStore(log)
	}
	defer dedupStore.Close()

	tokenCipher, err := utils.NewTokenCipher(tokenMasterSecret)
	if err != nil {
		log.Error("Could not init token cipher", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	cacheService := services.NewResponseCacheService(thePG, log, responseCacheRepo)
	retrieverService := services.NewRetrieverService(thePG, log, knowledgeEntryRepo, openaiClient)
	aiService := services.NewAIService(thePG, log, cacheService, retrieverService, openaiClient)
	flowService := services.NewFlowService(thePG, log, chatbotNodeRepo, conversationStateRepo, conversationRepo, messageRepo)
	routerService := services.NewRouterService(
		thePG,
		log,
		conversationRepo,
		conversationStateRepo,
		messageRepo,
		chatbotRepo,
		chatbotTriggerRepo,
		flowService,
		aiService,
	)
	dispatchService := services.NewDispatchService(thePG, log, messageRepo, whatsappClient, tokenCipher, sendRate)
	webhookService := services.NewWebhookService(
		thePG,
		log,
		connectionRepo,
		messageRepo,
		dedupStore,
		routerService,
		dispatchService,
		verifyToken,
		appSecret,
	)
	knowledgeService := services.NewKnowledgeService(thePG, log, knowledgeEntryRepo)
	conversationService := services.NewConversationService(thePG, log, conversationRepo, messageRepo)
	indexerService := services.NewIndexerService(thePG, log, knowledgeEntryRepo, openaiClient)
	indexerService.StartWorker(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	webhookHandler := handlers.NewWebhookHandler(log, webhookService, utils.GetEnv("WEBHOOK_SIGNATURE_HEADER", "X-Hub-Signature-256", log))
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService)
	conversationHandler := handlers.NewConversationHandler(conversationService)

	// Middleware
	log.Info("Setting up middleware from main...")
	adminMiddleware := middleware.NewAdminAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		WebhookHandler:      webhookHandler,
		KnowledgeHandler:    knowledgeHandler,
		ConversationHandler: conversationHandler,
		AdminMiddleware:     adminMiddleware,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
