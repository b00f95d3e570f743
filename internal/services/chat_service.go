package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
	apperrors "github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/errors"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/repository"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/utils"
)

const (
	dietChatType = "diet"

	chatMaxTokens     = 150
	toolMaxTokens     = 500
	followUpMaxTokens = 300
	mainTemperature   = 0.7

	defaultHistoryLimit = 50

	fallbackReply = "응답을 생성할 수 없습니다."
	skippedResult = "(중복 호출 - 스킵됨)"
)

// intentClassifier lets tests drive the pipeline with a fixed intent.
type intentClassifier interface {
	Classify(ctx context.Context, message string) domain.Intent
}

// ChatReply is the outcome of one processed message.
type ChatReply struct {
	Message      string
	Intent       domain.Intent
	ActionResult *ActionResult
}

// ActionResult reports what the executed tool calls did, in call order.
// Nil when the model called no tools.
type ActionResult struct {
	ToolCalls []string `json:"tool_calls"`
}

// ChatService runs the two-step pipeline: classify the message, assemble
// context, call the model with intent-scoped tools, execute what it asked
// for, and synthesize the reply.
type ChatService struct {
	provider   AIProvider
	classifier intentClassifier
	contexts   *ContextService
	meals      *MealService
	messages   *repository.MessageRepository
	timeout    time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// NewChatService wires the pipeline. timeoutSeconds bounds each individual
// model call; zero or negative falls back to 30 seconds.
func NewChatService(
	provider AIProvider,
	classifier *ClassifierService,
	contexts *ContextService,
	meals *MealService,
	messages *repository.MessageRepository,
	timeoutSeconds int,
	log *logger.Logger,
) *ChatService {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &ChatService{
		provider:   provider,
		classifier: classifier,
		contexts:   contexts,
		meals:      meals,
		messages:   messages,
		timeout:    time.Duration(timeoutSeconds) * time.Second,
		logger:     log,
		now:        time.Now,
	}
}

// ProcessMessage handles one user turn. The user message is persisted
// before anything can fail, so even an errored turn leaves the user's side
// of the conversation on record.
func (s *ChatService) ProcessMessage(ctx context.Context, userID, content string, persona domain.Persona) (*ChatReply, error) {
	if err := s.messages.Save(ctx, userID, "user", content, dietChatType); err != nil {
		return nil, err
	}

	intent := s.classify(ctx, content)
	s.logger.WithFields(map[string]any{"intent": string(intent)}).Info("Processing chat message")

	// The chat branch never touches user data, so skip the queries.
	var userCtx UserContext
	if intent != domain.IntentChat {
		userCtx = s.contexts.Fetch(ctx, userID)
	} else {
		userCtx = UserContext{Today: utils.Today()}
	}

	systemPrompt := BuildPrompt(intent, persona, userCtx)
	maxTokens := toolMaxTokens
	if intent == domain.IntentChat {
		maxTokens = chatMaxTokens
	}
	params := ChatParams{
		System:      systemPrompt,
		UserMessage: content,
		MaxTokens:   maxTokens,
		Temperature: mainTemperature,
		Tools:       ToolsForIntent(intent),
		ForcedTool:  ForcedToolForIntent(intent),
	}

	result, err := s.chatCompletion(ctx, params)
	if err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Error("Model call failed")
		return nil, err
	}

	reply := result.Content
	var actionResult *ActionResult

	if len(result.ToolCalls) > 0 {
		toolResults, err := s.executeToolCalls(ctx, userID, result.ToolCalls)
		if err != nil {
			return nil, err
		}

		if reply == "" {
			reply = s.followUp(ctx, params, result.ToolCalls, toolResults)
		}
		if reply == "" {
			lines := make([]string, 0, len(toolResults))
			for _, r := range toolResults {
				lines = append(lines, r.Content)
			}
			reply = strings.Join(lines, "\n")
		}

		calls := make([]string, 0, len(toolResults))
		for _, r := range toolResults {
			calls = append(calls, r.Content)
		}
		actionResult = &ActionResult{ToolCalls: calls}
	}

	if reply == "" {
		reply = fallbackReply
	}

	if err := s.messages.Save(ctx, userID, "assistant", reply, dietChatType); err != nil {
		return nil, err
	}
	return &ChatReply{Message: reply, Intent: intent, ActionResult: actionResult}, nil
}

func (s *ChatService) classify(ctx context.Context, content string) domain.Intent {
	classifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.classifier.Classify(classifyCtx, content)
}

func (s *ChatService) chatCompletion(ctx context.Context, params ChatParams) (*ChatResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.provider.ChatCompletion(callCtx, params)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, apperrors.NewTimeoutError("model call")
	}
	return result, err
}

// followUp runs the synthesis turn. Failure is tolerated; the caller falls
// back to the raw tool results.
func (s *ChatService) followUp(ctx context.Context, params ChatParams, calls []ToolCall, results []ToolResult) string {
	followParams := params
	followParams.MaxTokens = followUpMaxTokens
	followParams.Tools = nil
	followParams.ForcedTool = ""

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.provider.ChatFollowUp(callCtx, followParams, calls, results)
	if err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Warn("Follow-up call failed, using tool results")
		return ""
	}
	return result.Content
}

// executeToolCalls runs each requested call in order. Repeats of an
// identical (name, arguments) pair are skipped, and malformed calls become
// inert results so the follow-up turn still gets one entry per call. A
// store failure aborts the turn; the user must never see a failed write
// reported as success.
func (s *ChatService) executeToolCalls(ctx context.Context, userID string, calls []ToolCall) ([]ToolResult, error) {
	results := make([]ToolResult, 0, len(calls))
	seen := make(map[string]bool, len(calls))

	for _, call := range calls {
		key := call.Name + ":" + call.Arguments
		if seen[key] {
			results = append(results, ToolResult{CallID: call.ID, Content: skippedResult})
			continue
		}
		seen[key] = true

		s.logger.WithFields(map[string]any{"tool": call.Name}).Info("Executing tool call")

		content := "completed"
		action, ok := ParseToolCall(call.Name, call.Arguments)
		if ok {
			msg, err := s.executeAction(ctx, userID, action)
			if err != nil {
				s.logger.WithFields(map[string]any{"tool": call.Name, "error": err.Error()}).Error("Tool execution failed")
				return nil, err
			}
			if msg != "" {
				content = msg
			}
		} else {
			s.logger.WithFields(map[string]any{"tool": call.Name}).Warn("Dropping malformed tool call")
		}
		results = append(results, ToolResult{CallID: call.ID, Content: content})
	}
	return results, nil
}

func (s *ChatService) executeAction(ctx context.Context, userID string, action ToolAction) (string, error) {
	switch a := action.(type) {
	case LogMealAction:
		mealType := a.MealType
		if mealType == "" {
			mealType = utils.InferMealType(s.now())
		}
		return s.meals.LogMeal(ctx, userID, mealType, a.Date, a.Foods)
	case GetMealsAction:
		return s.meals.GetMeals(ctx, userID, a.Date, a.MealType)
	case DeleteMealAction:
		return s.meals.DeleteMeal(ctx, userID, a.MealType, a.Date, a.FoodName)
	case UpdateMealAction:
		return s.meals.UpdateMeal(ctx, userID, a.MealType, a.Date, a.OldFoodName, a.NewFood)
	}
	return "", nil
}

// GetHistory returns the user's recent diet conversation, oldest first.
func (s *ChatService) GetHistory(ctx context.Context, userID string, limit int) ([]HistoryMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.messages.ListRecent(ctx, userID, dietChatType, limit)
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

// ClearHistory deletes the user's diet conversation.
func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	return s.messages.Clear(ctx, userID, dietChatType)
}

// HistoryMessage is one turn of stored conversation as served over HTTP.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
