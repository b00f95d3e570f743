package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/utils"
)

const defaultTargetCalories = 2000

// weightTrendThreshold in kg. Smaller swings over the window count as stable.
const weightTrendThreshold = 0.3

// ContextService assembles the per-user data snapshot that feeds the
// system prompt: today's intake, weight history, trend, and streak.
type ContextService struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewContextService creates a new user context service
func NewContextService(db *gorm.DB, log *logger.Logger) *ContextService {
	return &ContextService{db: db, logger: log}
}

// Fetch builds the UserContext for one user. Individual lookups that fail
// leave their fields at zero values rather than failing the whole turn.
func (s *ContextService) Fetch(ctx context.Context, userID string) UserContext {
	today := utils.Today()
	weekAgo := utils.DaysAgo(6)

	uc := UserContext{
		Today:          today,
		TargetCalories: defaultTargetCalories,
		WeightTrend:    "unknown",
	}

	// Today's meals with items for calories and the food list.
	var todayMeals []database.Meal
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND date = ?", userID, today).
		Find(&todayMeals).Error; err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Warn("Failed to load today's meals for context")
	}
	for _, meal := range todayMeals {
		uc.TodayCalories += meal.TotalCalories
		label := domain.MealType(meal.MealType).Label()
		for _, item := range meal.Items {
			uc.TodayFoods = append(uc.TodayFoods, fmt.Sprintf("%s:%s", label, item.Name))
		}
	}

	// Profile for target calories and goal weight.
	var profile database.UserProfile
	profileErr := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if profileErr == nil {
		if profile.TargetCalories > 0 {
			uc.TargetCalories = profile.TargetCalories
		}
		uc.GoalWeightKg = profile.GoalWeightKg
	}

	// Last 7 days of weight records, ascending by date.
	var weights []database.WeightRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, weekAgo, today).
		Order("date ASC").
		Find(&weights).Error; err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Warn("Failed to load weight records for context")
	}
	for _, w := range weights {
		uc.RecentWeights = append(uc.RecentWeights, WeightPoint{Date: w.Date, WeightKg: w.WeightKg})
	}

	// Current weight: latest record wins, profile value is the fallback.
	if n := len(uc.RecentWeights); n > 0 {
		current := uc.RecentWeights[n-1].WeightKg
		uc.CurrentWeightKg = &current
	} else if profileErr == nil && profile.CurrentWeightKg != nil {
		uc.CurrentWeightKg = profile.CurrentWeightKg
	}

	if len(uc.RecentWeights) >= 2 {
		diff := uc.RecentWeights[len(uc.RecentWeights)-1].WeightKg - uc.RecentWeights[0].WeightKg
		switch {
		case diff > weightTrendThreshold:
			uc.WeightTrend = "up"
		case diff < -weightTrendThreshold:
			uc.WeightTrend = "down"
		default:
			uc.WeightTrend = "stable"
		}
	}

	// Weekly calories, grouped per day. The average divides by days that
	// have records, not by seven.
	var weeklyMeals []database.Meal
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, weekAgo, today).
		Find(&weeklyMeals).Error; err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Warn("Failed to load weekly meals for context")
	}
	if len(weeklyMeals) > 0 {
		dailyTotals := make(map[string]int)
		for _, meal := range weeklyMeals {
			dailyTotals[meal.Date] += meal.TotalCalories
		}

		dates := make([]string, 0, len(dailyTotals))
		for d := range dailyTotals {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		total := 0
		for _, d := range dates {
			uc.RecentDailyCalories = append(uc.RecentDailyCalories, DailyCalories{Date: d, Calories: dailyTotals[d]})
			total += dailyTotals[d]
		}
		uc.WeeklyAvgCalories = int(math.Round(float64(total) / float64(len(dailyTotals))))
	}

	uc.ConsecutiveDays = s.consecutiveDays(ctx, userID)
	return uc
}

// consecutiveDays counts back from yesterday until the first day without a
// meal record, capped at seven.
func (s *ContextService) consecutiveDays(ctx context.Context, userID string) int {
	streak := 0
	for offset := 1; offset <= 7; offset++ {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&database.Meal{}).
			Where("user_id = ? AND date = ?", userID, utils.DaysAgo(offset)).
			Count(&count).Error; err != nil || count == 0 {
			break
		}
		streak++
	}
	return streak
}
