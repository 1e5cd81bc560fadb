package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chatwire/chatwire-backend/internal/db"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
	"github.com/chatwire/chatwire-backend/internal/utils"
)

// seedFile is the YAML shape consumed by this command. Nodes are declared in
// chain order; each node links to the one after it.
type seedFile struct {
	TenantID   string `yaml:"tenant_id"`
	Connection *struct {
		PhoneNumberID string `yaml:"phone_number_id"`
		AccessToken   string `yaml:"access_token"`
	} `yaml:"connection"`
	Chatbot *struct {
		Name     string `yaml:"name"`
		IsActive bool   `yaml:"is_active"`
		Triggers []struct {
			Type    string `yaml:"type"`
			Keyword string `yaml:"keyword"`
		} `yaml:"triggers"`
		Nodes []struct {
			Type    string `yaml:"type"`
			Content string `yaml:"content"`
		} `yaml:"nodes"`
	} `yaml:"chatbot"`
	Knowledge []struct {
		Question   string `yaml:"question"`
		Answer     string `yaml:"answer"`
		IntentType string `yaml:"intent_type"`
		Priority   int    `yaml:"priority"`
	} `yaml:"knowledge"`
}

func main() {
	_ = godotenv.Load()

	filePath := flag.String("file", "seed.yaml", "path to the seed YAML file")
	flag.Parse()

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

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Error("Failed to read seed file", "path", *filePath, "error", err)
		os.Exit(1)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		log.Error("Failed to parse seed file", "path", *filePath, "error", err)
		os.Exit(1)
	}
	tenantID, err := uuid.Parse(seed.TenantID)
	if err != nil {
		log.Error("Seed file has no valid tenant_id", "error", err)
		os.Exit(1)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	connectionRepo := repos.NewConnectionRepo(thePG, log)
	chatbotRepo := repos.NewChatbotRepo(thePG, log)
	nodeRepo := repos.NewChatbotNodeRepo(thePG, log)
	triggerRepo := repos.NewChatbotTriggerRepo(thePG, log)
	knowledgeRepo := repos.NewKnowledgeEntryRepo(thePG, log)

	ctx := context.Background()

	if seed.Connection != nil {
		tokenCipher, err := utils.NewTokenCipher(utils.GetEnv("TOKEN_MASTER_SECRET", "", log))
		if err != nil {
			log.Error("Could not init token cipher", "error", err)
			os.Exit(1)
		}
		encrypted, err := tokenCipher.Encrypt(seed.Connection.AccessToken)
		if err != nil {
			log.Error("Could not encrypt connection token", "error", err)
			os.Exit(1)
		}
		connection := &types.Connection{
			TenantID:      tenantID,
			PhoneNumberID: seed.Connection.PhoneNumberID,
			AccessToken:   encrypted,
			IsActive:      true,
		}
		if _, err := connectionRepo.Create(ctx, nil, connection); err != nil {
			log.Error("Failed to seed connection", "error", err)
			os.Exit(1)
		}
		log.Info("Seeded connection", "phone_number_id", seed.Connection.PhoneNumberID)
	}

	if seed.Chatbot != nil {
		chatbot := &types.Chatbot{
			TenantID: tenantID,
			Name:     seed.Chatbot.Name,
			IsActive: seed.Chatbot.IsActive,
		}
		if _, err := chatbotRepo.Create(ctx, nil, chatbot); err != nil {
			log.Error("Failed to seed chatbot", "error", err)
			os.Exit(1)
		}

		for _, t := range seed.Chatbot.Triggers {
			trigger := &types.ChatbotTrigger{
				ChatbotID: chatbot.ID,
				Type:      t.Type,
				Keyword:   t.Keyword,
			}
			if _, err := triggerRepo.Create(ctx, nil, trigger); err != nil {
				log.Error("Failed to seed trigger", "type", t.Type, "error", err)
				os.Exit(1)
			}
		}

		// Create nodes first, then link each to its successor.
		created := make([]*types.ChatbotNode, 0, len(seed.Chatbot.Nodes))
		for _, n := range seed.Chatbot.Nodes {
			nodeType := n.Type
			if nodeType == "" {
				nodeType = types.NodeTypeMessage
			}
			node := &types.ChatbotNode{
				ChatbotID: chatbot.ID,
				Type:      nodeType,
				Content:   n.Content,
			}
			if _, err := nodeRepo.Create(ctx, nil, node); err != nil {
				log.Error("Failed to seed chatbot node", "error", err)
				os.Exit(1)
			}
			created = append(created, node)
		}
		for i := 0; i+1 < len(created); i++ {
			created[i].NextNodeID = &created[i+1].ID
			if _, err := nodeRepo.Update(ctx, nil, created[i]); err != nil {
				log.Error("Failed to link chatbot nodes", "error", err)
				os.Exit(1)
			}
		}
		log.Info("Seeded chatbot",
			"name", chatbot.Name,
			"triggers", len(seed.Chatbot.Triggers),
			"nodes", len(created),
		)
	}

	for _, k := range seed.Knowledge {
		intentType := k.IntentType
		if intentType == "" {
			intentType = "faq"
		}
		entry := &types.KnowledgeEntry{
			TenantID:   tenantID,
			Question:   k.Question,
			Answer:     k.Answer,
			IntentType: intentType,
			Priority:   k.Priority,
			IsActive:   true,
		}
		if _, err := knowledgeRepo.Create(ctx, nil, entry); err != nil {
			log.Error("Failed to seed knowledge entry", "error", err)
			os.Exit(1)
		}
	}
	if len(seed.Knowledge) > 0 {
		log.Info("Seeded knowledge entries", "count", len(seed.Knowledge))
	}
}
