package domain

import "strings"

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentLog     Intent = "log"
	IntentQuery   Intent = "query"
	IntentStats   Intent = "stats"
	IntentModify  Intent = "modify"
	IntentAnalyze Intent = "analyze"
	IntentChat    Intent = "chat"
)

// ParseIntent normalizes a raw classifier output. Anything that is not one
// of the six known labels falls back to IntentChat so classification can
// never block the conversation.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentLog:
		return IntentLog
	case IntentQuery:
		return IntentQuery
	case IntentStats:
		return IntentStats
	case IntentModify:
		return IntentModify
	case IntentAnalyze:
		return IntentAnalyze
	case IntentChat:
		return IntentChat
	default:
		return IntentChat
	}
}
