package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
)

type Config struct {
	Port          string
	CORSOrigins   []string
	JWTSecret     string
	RAGServiceURL string
	AI            AIConfig
	DB            DBConfig
	Redis         RedisConfig
	Logger        LoggerConfig
}

type AIConfig struct {
	// Provider selects the model backend: "openai" or "gemini".
	Provider       string
	OpenAIAPIKey   string
	GeminiAPIKey   string
	Model          string
	TimeoutSeconds int
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Enabled bool
	Host    string
	Port    string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func parseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8000"),
		CORSOrigins:   parseOrigins(getEnvOrDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RAGServiceURL: getEnvOrDefault("RAG_SERVICE_URL", "http://localhost:8001"),
		AI: AIConfig{
			Provider:       strings.ToLower(getEnvOrDefault("AI_PROVIDER", "openai")),
			OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
			GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
			Model:          getEnvOrDefault("AI_MODEL", ""),
			TimeoutSeconds: getEnvIntOrDefault("AI_TIMEOUT_SECONDS", 30),
		},
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "satiachat"),
		},
		Redis: RedisConfig{
			Enabled: getEnvOrDefault("REDIS_ENABLED", "false") == "true",
			Host:    getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:    getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case "gemini":
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q (expected openai or gemini)", c.AI.Provider)
	}
	return nil
}
