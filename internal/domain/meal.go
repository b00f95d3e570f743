package domain

import "strings"

// MealType identifies one of the four meal slots of a calendar day.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"

	// MealTypeAll is only valid as a query filter.
	MealTypeAll MealType = "all"
)

var mealTypeLabels = map[MealType]string{
	MealTypeBreakfast: "아침",
	MealTypeLunch:     "점심",
	MealTypeDinner:    "저녁",
	MealTypeSnack:     "간식",
}

// Label returns the Korean label used in user-facing summaries.
func (m MealType) Label() string {
	return mealTypeLabels[m]
}

// ParseMealType returns the meal type for s and whether it was valid.
// MealTypeAll is rejected here; use ParseMealFilter for query filters.
func ParseMealType(s string) (MealType, bool) {
	switch MealType(strings.ToLower(strings.TrimSpace(s))) {
	case MealTypeBreakfast:
		return MealTypeBreakfast, true
	case MealTypeLunch:
		return MealTypeLunch, true
	case MealTypeDinner:
		return MealTypeDinner, true
	case MealTypeSnack:
		return MealTypeSnack, true
	default:
		return "", false
	}
}

// ParseMealFilter is ParseMealType extended with the "all" wildcard.
// Empty or unknown input falls back to MealTypeAll.
func ParseMealFilter(s string) MealType {
	if mt, ok := ParseMealType(s); ok {
		return mt
	}
	return MealTypeAll
}
