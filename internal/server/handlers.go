package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
	apperrors "github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/errors"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/services"
)

type chatRequest struct {
	Content string `json:"content" binding:"required"`
	// Persona is optional; an omitted or unknown value reuses the one from
	// the user's previous turn.
	Persona string `json:"persona"`
}

type chatResponse struct {
	Message      string                 `json:"message"`
	Intent       string                 `json:"intent"`
	ActionResult *services.ActionResult `json:"action_result,omitempty"`
}

func (s *Server) handleChatMessage(c *gin.Context) {
	userID := currentUserID(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, apperrors.NewValidationError("content is required"))
		return
	}

	persona, ok := domain.ParsePersona(req.Persona)
	if ok {
		s.sessions.SetPersona(userID, persona)
	} else {
		persona = s.sessions.GetPersona(userID)
	}

	reply, err := s.chat.ProcessMessage(c.Request.Context(), userID, req.Content, persona)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{
		Message:      reply.Message,
		Intent:       string(reply.Intent),
		ActionResult: reply.ActionResult,
	})
}

func (s *Server) handleChatHistory(c *gin.Context) {
	messages, err := s.chat.GetHistory(c.Request.Context(), currentUserID(c), queryLimit(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "total": len(messages)})
}

func (s *Server) handleClearChatHistory(c *gin.Context) {
	if err := s.chat.ClearHistory(c.Request.Context(), currentUserID(c)); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat history cleared"})
}

func (s *Server) handleMedicationAsk(c *gin.Context) {
	var req services.MedicationQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, apperrors.NewValidationError("query is required"))
		return
	}

	answer, err := s.medication.Ask(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleMedicationHistory(c *gin.Context) {
	messages, err := s.medication.GetHistory(c.Request.Context(), currentUserID(c), queryLimit(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "total": len(messages)})
}

func (s *Server) handleClearMedicationHistory(c *gin.Context) {
	if err := s.medication.ClearHistory(c.Request.Context(), currentUserID(c)); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Medication chat history cleared"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// abortWithError maps application errors to status codes. Internals never
// reach the client; the error itself goes to the log. Validation messages
// are written for the caller, so those pass through.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	s.logger.WithFields(map[string]any{
		"error":  err.Error(),
		"status": status,
		"path":   c.FullPath(),
	}).Error("Request failed")

	message := "internal server error"
	switch status {
	case http.StatusBadRequest:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
	case http.StatusServiceUnavailable:
		message = "medication service unavailable"
	}
	c.JSON(status, gin.H{"error": message})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}
