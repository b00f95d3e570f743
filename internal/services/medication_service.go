package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
	apperrors "github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/errors"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/repository"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/utils"
)

const medicationChatType = "medication"

// MedicationQuery is one question for the medication knowledge service.
type MedicationQuery struct {
	Query                string `json:"query" binding:"required"`
	IncludeHealthContext *bool  `json:"include_health_context"`
	UseRAG               *bool  `json:"use_rag"`
	Intent               string `json:"intent"`
}

// MedicationAnswer is the knowledge service's reply.
type MedicationAnswer struct {
	Response    string   `json:"response"`
	IsEmergency bool     `json:"is_emergency"`
	Sources     []string `json:"sources"`
}

type ragRequest struct {
	Query       string `json:"query"`
	UserContext string `json:"user_context"`
	UseRAG      bool   `json:"use_rag"`
	Intent      string `json:"intent"`
}

// MedicationService proxies medication questions to the retrieval service
// run by the RAG team, optionally enriched with the user's health data.
type MedicationService struct {
	baseURL  string
	client   *http.Client
	db       *gorm.DB
	messages *repository.MessageRepository
	logger   *logger.Logger
}

// NewMedicationService creates a new medication RAG client
func NewMedicationService(baseURL string, db *gorm.DB, messages *repository.MessageRepository, log *logger.Logger) *MedicationService {
	return &MedicationService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		db:       db,
		messages: messages,
		logger:   log,
	}
}

// Ask forwards a question to the retrieval service and stores both turns.
func (s *MedicationService) Ask(ctx context.Context, userID string, query MedicationQuery) (*MedicationAnswer, error) {
	includeContext := query.IncludeHealthContext == nil || *query.IncludeHealthContext
	useRAG := query.UseRAG == nil || *query.UseRAG
	intent := query.Intent
	if intent == "" {
		intent = "medication_info"
	}

	userContext := ""
	if includeContext {
		userContext = s.fetchHealthContext(ctx, userID)
	}

	answer, err := s.queryRAG(ctx, ragRequest{
		Query:       query.Query,
		UserContext: userContext,
		UseRAG:      useRAG,
		Intent:      intent,
	})
	if err != nil {
		return nil, err
	}

	if err := s.messages.Save(ctx, userID, "user", query.Query, medicationChatType); err != nil {
		return nil, err
	}
	if err := s.messages.Save(ctx, userID, "assistant", answer.Response, medicationChatType); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *MedicationService) queryRAG(ctx context.Context, reqBody ragRequest) (*MedicationAnswer, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Error("Medication service unreachable")
		return nil, apperrors.ErrRAGUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(map[string]any{"status": resp.StatusCode}).Error("Medication service returned error")
		return nil, apperrors.ErrRAGUnavailable
	}

	var answer MedicationAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, apperrors.NewExternalAPIError(err, "RAG")
	}
	if answer.Sources == nil {
		answer.Sources = []string{}
	}
	return &answer, nil
}

// fetchHealthContext summarizes the user's profile, recent weights, and
// today's intake as Korean text for the retrieval prompt. Lookups that fail
// just leave their line out.
func (s *MedicationService) fetchHealthContext(ctx context.Context, userID string) string {
	var parts []string
	today := utils.Today()
	weekAgo := utils.DaysAgo(6)

	var profile database.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err == nil {
		if profile.CurrentWeightKg != nil && profile.GoalWeightKg != nil {
			parts = append(parts, fmt.Sprintf("현재 체중: %gkg, 목표 체중: %gkg", *profile.CurrentWeightKg, *profile.GoalWeightKg))
		}
		if profile.TargetCalories > 0 {
			parts = append(parts, fmt.Sprintf("일일 목표 칼로리: %dkcal", profile.TargetCalories))
		}
	}

	var weights []database.WeightRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, weekAgo).
		Order("date ASC").
		Find(&weights).Error; err == nil && len(weights) > 0 {
		if len(weights) > 5 {
			weights = weights[len(weights)-5:]
		}
		entries := make([]string, 0, len(weights))
		for _, w := range weights {
			entries = append(entries, fmt.Sprintf("%s: %gkg", w.Date, w.WeightKg))
		}
		parts = append(parts, fmt.Sprintf("최근 체중 기록: %s", strings.Join(entries, ", ")))
	}

	var meals []database.Meal
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, today).
		Find(&meals).Error; err == nil && len(meals) > 0 {
		total := 0
		for _, m := range meals {
			total += m.TotalCalories
		}
		parts = append(parts, fmt.Sprintf("오늘 섭취 칼로리: %dkcal", total))
	}

	return strings.Join(parts, "\n")
}

// GetHistory returns the user's recent medication conversation, oldest first.
func (s *MedicationService) GetHistory(ctx context.Context, userID string, limit int) ([]HistoryMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.messages.ListRecent(ctx, userID, medicationChatType, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]HistoryMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, HistoryMessage{
			Role:      row.Role,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		})
	}
	return messages, nil
}

// ClearHistory deletes the user's medication conversation.
func (s *MedicationService) ClearHistory(ctx context.Context, userID string) error {
	return s.messages.Clear(ctx, userID, medicationChatType)
}
