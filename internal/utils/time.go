package utils

import (
	"time"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
)

const dateLayout = "2006-01-02"

// Today returns the current calendar date in the server's local timezone,
// formatted as YYYY-MM-DD.
func Today() string {
	return time.Now().Format(dateLayout)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DaysAgo returns the local date n days before today, as YYYY-MM-DD.
func DaysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format(dateLayout)
}

// ValidDate reports whether s is a parseable YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// InferMealType maps a wall-clock time to a meal slot:
// 05:00-09:59 breakfast, 10:00-14:59 lunch, 15:00-20:59 dinner, else snack.
func InferMealType(t time.Time) domain.MealType {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 10:
		return domain.MealTypeBreakfast
	case hour >= 10 && hour < 15:
		return domain.MealTypeLunch
	case hour >= 15 && hour < 21:
		return domain.MealTypeDinner
	default:
		return domain.MealTypeSnack
	}
}
