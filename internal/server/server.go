package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/config"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/services"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/session"
)

// Server is the HTTP surface: the diet chat pipeline and the medication
// proxy, both behind bearer auth.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	chat       *services.ChatService
	medication *services.MedicationService
	sessions   session.Manager
	logger     *logger.Logger
}

// New assembles the router with CORS, auth, and all routes registered.
func New(
	cfg *config.Config,
	chat *services.ChatService,
	medication *services.MedicationService,
	sessions session.Manager,
	log *logger.Logger,
) *Server {
	s := &Server{
		chat:       chat,
		medication: medication,
		sessions:   sessions,
		logger:     log,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	api.Use(AuthMiddleware(cfg.JWTSecret))

	chatRoutes := api.Group("/chat")
	{
		chatRoutes.POST("/message", s.handleChatMessage)
		chatRoutes.GET("/history", s.handleChatHistory)
		chatRoutes.DELETE("/history", s.handleClearChatHistory)
	}

	medicationRoutes := api.Group("/medication")
	{
		medicationRoutes.POST("/ask", s.handleMedicationAsk)
		medicationRoutes.GET("/history", s.handleMedicationHistory)
		medicationRoutes.DELETE("/history", s.handleClearMedicationHistory)
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.WithFields(map[string]any{"addr": s.httpServer.Addr}).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
