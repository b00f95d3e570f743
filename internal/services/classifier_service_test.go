package services

import (
	"context"
	"errors"
	"testing"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
)

func TestClassifyValidIntents(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewClassifierService(provider, testLogger())

	cases := map[string]domain.Intent{
		"log":     domain.IntentLog,
		"query":   domain.IntentQuery,
		"stats":   domain.IntentStats,
		"modify":  domain.IntentModify,
		"analyze": domain.IntentAnalyze,
		"chat":    domain.IntentChat,
		" Query ": domain.IntentQuery, // whitespace and case tolerated
	}
	for raw, want := range cases {
		provider.result = &ChatResult{Content: raw}
		if got := svc.Classify(context.Background(), "메시지"); got != want {
			t.Fatalf("%q: expected %s, got %s", raw, want, got)
		}
	}

	if provider.lastParams.Temperature != 0 || provider.lastParams.MaxTokens != 10 {
		t.Fatalf("unexpected classifier params: %+v", provider.lastParams)
	}
}

func TestClassifyDegradesToChat(t *testing.T) {
	provider := &fakeProvider{result: &ChatResult{Content: "definitely-not-an-intent"}}
	svc := NewClassifierService(provider, testLogger())
	if got := svc.Classify(context.Background(), "x"); got != domain.IntentChat {
		t.Fatalf("expected unknown label to become chat, got %s", got)
	}

	provider = &fakeProvider{err: errors.New("api down")}
	svc = NewClassifierService(provider, testLogger())
	if got := svc.Classify(context.Background(), "x"); got != domain.IntentChat {
		t.Fatalf("expected provider failure to become chat, got %s", got)
	}
}
