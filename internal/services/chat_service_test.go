package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
	apperrors "github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/errors"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/repository"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/utils"
)

type fakeProvider struct {
	result    *ChatResult
	err       error
	follow    *ChatResult
	followErr error

	lastParams       ChatParams
	lastFollowParams ChatParams
	followCalled     bool
}

func (f *fakeProvider) ChatCompletion(_ context.Context, params ChatParams) (*ChatResult, error) {
	f.lastParams = params
	return f.result, f.err
}

func (f *fakeProvider) ChatFollowUp(_ context.Context, params ChatParams, _ []ToolCall, _ []ToolResult) (*ChatResult, error) {
	f.followCalled = true
	f.lastFollowParams = params
	return f.follow, f.followErr
}

type fixedClassifier struct {
	intent domain.Intent
}

func (f fixedClassifier) Classify(context.Context, string) domain.Intent {
	return f.intent
}

func newTestChatService(t *testing.T, db *gorm.DB, provider *fakeProvider, intent domain.Intent) *ChatService {
	t.Helper()
	lg := testLogger()
	return &ChatService{
		provider:   provider,
		classifier: fixedClassifier{intent: intent},
		contexts:   NewContextService(db, lg),
		meals:      NewMealService(db, lg),
		messages:   repository.NewMessageRepository(db),
		timeout:    5 * time.Second,
		logger:     lg,
		now: func() time.Time {
			return time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
		},
	}
}

func countMessages(t *testing.T, db *gorm.DB, role string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&database.ChatMessage{}).
		Where("user_id = ? AND role = ? AND chat_type = ?", testUserID, role, dietChatType).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count messages: %v", err)
	}
	return count
}

func TestProcessMessageChatIntent(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{result: &ChatResult{Content: "안녕! 오늘도 파이팅이야 😊"}}
	svc := newTestChatService(t, db, provider, domain.IntentChat)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "안녕", domain.PersonaBright)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply.Intent != domain.IntentChat {
		t.Fatalf("expected chat intent, got %s", reply.Intent)
	}
	if reply.Message != "안녕! 오늘도 파이팅이야 😊" {
		t.Fatalf("unexpected reply: %s", reply.Message)
	}
	if reply.ActionResult != nil {
		t.Fatalf("expected no action result for chat")
	}

	if provider.lastParams.MaxTokens != chatMaxTokens {
		t.Fatalf("expected chat token budget %d, got %d", chatMaxTokens, provider.lastParams.MaxTokens)
	}
	if len(provider.lastParams.Tools) != 0 {
		t.Fatalf("expected no tools for chat intent")
	}

	if countMessages(t, db, "user") != 1 || countMessages(t, db, "assistant") != 1 {
		t.Fatalf("expected both turns persisted")
	}
}

func TestProcessMessageQueryForcesLookup(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		result: &ChatResult{ToolCalls: []ToolCall{
			{ID: "call_1", Name: ToolGetMeals, Arguments: `{}`},
		}},
		follow: &ChatResult{Content: "오늘은 아직 아무것도 안 먹었네!"},
	}
	svc := newTestChatService(t, db, provider, domain.IntentQuery)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "오늘 뭐 먹었지?", domain.PersonaBright)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if provider.lastParams.ForcedTool != ToolGetMeals {
		t.Fatalf("expected forced get_meals, got %q", provider.lastParams.ForcedTool)
	}
	if !provider.followCalled {
		t.Fatalf("expected follow-up call when reply had no content")
	}
	if len(provider.lastFollowParams.Tools) != 0 || provider.lastFollowParams.ForcedTool != "" {
		t.Fatalf("follow-up turn must not offer tools")
	}
	if provider.lastFollowParams.MaxTokens != followUpMaxTokens {
		t.Fatalf("expected follow-up token budget %d, got %d", followUpMaxTokens, provider.lastFollowParams.MaxTokens)
	}

	if reply.Message != "오늘은 아직 아무것도 안 먹었네!" {
		t.Fatalf("unexpected reply: %s", reply.Message)
	}
	if reply.ActionResult == nil || len(reply.ActionResult.ToolCalls) != 1 {
		t.Fatalf("expected one tool call result, got %+v", reply.ActionResult)
	}
	if !strings.Contains(reply.ActionResult.ToolCalls[0], "기록이 없습니다") {
		t.Fatalf("unexpected tool result: %s", reply.ActionResult.ToolCalls[0])
	}
}

func TestProcessMessageDedupesIdenticalCalls(t *testing.T) {
	db := newTestDB(t)
	args := `{"meal_type":"lunch","foods":[{"name":"치킨","calories":450,"protein":40,"carbs":10,"fat":25}]}`
	provider := &fakeProvider{
		result: &ChatResult{ToolCalls: []ToolCall{
			{ID: "call_1", Name: ToolLogMeal, Arguments: args},
			{ID: "call_2", Name: ToolLogMeal, Arguments: args},
		}},
		follow: &ChatResult{Content: "치킨 기록했어!"},
	}
	svc := newTestChatService(t, db, provider, domain.IntentLog)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "치킨 먹었어", domain.PersonaStrict)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if len(reply.ActionResult.ToolCalls) != 2 {
		t.Fatalf("expected two results, got %d", len(reply.ActionResult.ToolCalls))
	}
	if reply.ActionResult.ToolCalls[1] != skippedResult {
		t.Fatalf("expected second call skipped, got %s", reply.ActionResult.ToolCalls[1])
	}

	var count int64
	if err := db.Model(&database.MealItem{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate call must execute once, got %d items", count)
	}
}

func TestProcessMessageInfersMealType(t *testing.T) {
	db := newTestDB(t)
	// No meal_type in the arguments; the fixed clock says noon, so lunch.
	provider := &fakeProvider{
		result: &ChatResult{ToolCalls: []ToolCall{
			{ID: "call_1", Name: ToolLogMeal, Arguments: `{"foods":[{"name":"김밥","calories":300,"protein":8,"carbs":50,"fat":7}]}`},
		}},
		follow: &ChatResult{Content: "김밥 맛있지!"},
	}
	svc := newTestChatService(t, db, provider, domain.IntentLog)

	if _, err := svc.ProcessMessage(context.Background(), testUserID, "김밥 먹었어", domain.PersonaBright); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	var meal database.Meal
	if err := db.Where("user_id = ? AND date = ?", testUserID, utils.Today()).First(&meal).Error; err != nil {
		t.Fatalf("expected meal created: %v", err)
	}
	if meal.MealType != string(domain.MealTypeLunch) {
		t.Fatalf("expected inferred lunch, got %s", meal.MealType)
	}
}

func TestProcessMessageContentSkipsFollowUp(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		result: &ChatResult{
			Content: "기록해둘게! 괜찮은 선택이야.",
			ToolCalls: []ToolCall{
				{ID: "call_1", Name: ToolLogMeal, Arguments: `{"meal_type":"dinner","foods":[{"name":"샐러드","calories":200,"protein":5,"carbs":15,"fat":8}]}`},
			},
		},
	}
	svc := newTestChatService(t, db, provider, domain.IntentLog)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "샐러드 먹었어", domain.PersonaCold)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if provider.followCalled {
		t.Fatalf("follow-up must be skipped when the first turn has content")
	}
	if reply.Message != "기록해둘게! 괜찮은 선택이야." {
		t.Fatalf("unexpected reply: %s", reply.Message)
	}
}

func TestProcessMessageFollowUpFailureFallsBack(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		result: &ChatResult{ToolCalls: []ToolCall{
			{ID: "call_1", Name: ToolGetMeals, Arguments: `{}`},
		}},
		followErr: errors.New("model overloaded"),
	}
	svc := newTestChatService(t, db, provider, domain.IntentQuery)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "뭐 먹었지?", domain.PersonaBright)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	// The reply degrades to the raw tool results.
	if !strings.Contains(reply.Message, "기록이 없습니다") {
		t.Fatalf("expected tool result fallback, got %s", reply.Message)
	}
}

func TestProcessMessageMalformedCallIsInert(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		result: &ChatResult{ToolCalls: []ToolCall{
			{ID: "call_1", Name: ToolDeleteMeal, Arguments: `{"food_name":"피자"}`},
		}},
		follow: &ChatResult{Content: "음, 어떤 끼니인지 알려줘!"},
	}
	svc := newTestChatService(t, db, provider, domain.IntentModify)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "피자 지워줘", domain.PersonaBright)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply.ActionResult.ToolCalls[0] != "completed" {
		t.Fatalf("expected inert result for malformed call, got %s", reply.ActionResult.ToolCalls[0])
	}
}

func TestProcessMessageProviderError(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{err: errors.New("api down")}
	svc := newTestChatService(t, db, provider, domain.IntentChat)

	if _, err := svc.ProcessMessage(context.Background(), testUserID, "안녕", domain.PersonaBright); err == nil {
		t.Fatalf("expected error when provider fails")
	}
	// The user's turn is on record even though the reply failed.
	if countMessages(t, db, "user") != 1 {
		t.Fatalf("expected user message persisted before the model call")
	}
	if countMessages(t, db, "assistant") != 0 {
		t.Fatalf("expected no assistant message on failure")
	}
}

func TestProcessMessageStoreFailurePropagates(t *testing.T) {
	db := newTestDB(t)
	// Dropping the meal tables makes every write fail mid-pipeline.
	if err := db.Migrator().DropTable(&database.MealItem{}, &database.Meal{}); err != nil {
		t.Fatalf("failed to drop tables: %v", err)
	}
	provider := &fakeProvider{
		result: &ChatResult{ToolCalls: []ToolCall{
			{ID: "call_1", Name: ToolLogMeal, Arguments: `{"meal_type":"lunch","foods":[{"name":"치킨","calories":450,"protein":40,"carbs":10,"fat":25}]}`},
		}},
		follow: &ChatResult{Content: "치킨 기록했어!"},
	}
	svc := newTestChatService(t, db, provider, domain.IntentLog)

	_, err := svc.ProcessMessage(context.Background(), testUserID, "치킨 먹었어", domain.PersonaBright)
	if err == nil {
		t.Fatalf("expected error when the meal write fails")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeDatabase {
		t.Fatalf("expected database error, got %v", err)
	}
	if provider.followCalled {
		t.Fatalf("follow-up must not run after a failed write")
	}
	// The user's turn stays on record, but no assistant turn claims success.
	if countMessages(t, db, "user") != 1 {
		t.Fatalf("expected user message persisted before the failure")
	}
	if countMessages(t, db, "assistant") != 0 {
		t.Fatalf("expected no assistant message when the write failed")
	}
}

func TestProcessMessageModelTimeout(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{err: context.DeadlineExceeded}
	svc := newTestChatService(t, db, provider, domain.IntentChat)

	_, err := svc.ProcessMessage(context.Background(), testUserID, "안녕", domain.PersonaBright)
	if err == nil {
		t.Fatalf("expected error when the model call times out")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestProcessMessageEmptyReplyFallback(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{result: &ChatResult{}}
	svc := newTestChatService(t, db, provider, domain.IntentChat)

	reply, err := svc.ProcessMessage(context.Background(), testUserID, "...", domain.PersonaBright)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply.Message != fallbackReply {
		t.Fatalf("expected fallback reply, got %s", reply.Message)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{result: &ChatResult{Content: "반가워!"}}
	svc := newTestChatService(t, db, provider, domain.IntentChat)
	ctx := context.Background()

	if _, err := svc.ProcessMessage(ctx, testUserID, "안녕", domain.PersonaBright); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	history, err := svc.GetHistory(ctx, testUserID, 50)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Fatalf("expected oldest-first ordering, got %+v", history)
	}

	if err := svc.ClearHistory(ctx, testUserID); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	history, err = svc.GetHistory(ctx, testUserID, 50)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(history))
	}
}
