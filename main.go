package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/config"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/repository"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/server"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/services"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting SatiaChat server")

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established and migrations completed")

	provider, err := newProvider(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize AI provider: %v", err)
	}
	logger.Info("AI provider initialized", "provider", cfg.AI.Provider)

	var sessions session.Manager
	if cfg.Redis.Enabled {
		redisSessions, err := session.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisSessions.Close()
		sessions = redisSessions
		logger.Info("Using Redis session manager")
	} else {
		sessions = session.NewMemoryManager()
		logger.Info("Using in-memory session manager")
	}

	messages := repository.NewMessageRepository(db)
	classifier := services.NewClassifierService(provider, logger.NewLogger("classifier"))
	contexts := services.NewContextService(db, logger.NewLogger("context"))
	meals := services.NewMealService(db, logger.NewLogger("meals"))
	chat := services.NewChatService(provider, classifier, contexts, meals, messages, cfg.AI.TimeoutSeconds, logger.NewLogger("chat"))
	medication := services.NewMedicationService(cfg.RAGServiceURL, db, messages, logger.NewLogger("medication"))

	srv := server.New(cfg, chat, medication, sessions, logger.NewLogger("http"))

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}

func newProvider(cfg *config.Config) (services.AIProvider, error) {
	if cfg.AI.Provider == "gemini" {
		return services.NewGeminiProvider(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.Model)
	}
	return services.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.Model), nil
}
