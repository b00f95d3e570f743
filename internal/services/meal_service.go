package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
	apperrors "github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/errors"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/logger"
)

// MealService owns meal reads and writes. Every mutation runs in one
// transaction so item rows and the meal's total never drift apart.
type MealService struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewMealService creates a new meal service
func NewMealService(db *gorm.DB, log *logger.Logger) *MealService {
	return &MealService{db: db, logger: log}
}

// scaledFood is a FoodInput with nutrients multiplied by its quantity.
type scaledFood struct {
	Name     string
	Quantity float64
	Calories int
	Protein  float64
	Carbs    float64
	Fat      float64
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func scaleFood(f FoodInput) scaledFood {
	return scaledFood{
		Name:     f.Name,
		Quantity: f.Quantity,
		Calories: int(math.Round(f.Calories * f.Quantity)),
		Protein:  round1(f.Protein * f.Quantity),
		Carbs:    round1(f.Carbs * f.Quantity),
		Fat:      round1(f.Fat * f.Quantity),
	}
}

func foodNames(foods []scaledFood) string {
	names := make([]string, 0, len(foods))
	for _, f := range foods {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

// LogMeal appends foods to the (user, date, mealType) slot, creating the
// meal row on first write. Foods whose name already exists in the slot are
// skipped; if everything is a duplicate the call is a no-op that still
// reports success.
func (s *MealService) LogMeal(ctx context.Context, userID string, mealType domain.MealType, date string, foods []FoodInput) (string, error) {
	scaled := make([]scaledFood, 0, len(foods))
	for _, f := range foods {
		scaled = append(scaled, scaleFood(f))
	}

	var message string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal database.Meal
		err := tx.Preload("Items").
			Where("user_id = ? AND date = ? AND meal_type = ?", userID, date, string(mealType)).
			First(&meal).Error

		switch {
		case err == nil:
			existing := make(map[string]bool, len(meal.Items))
			for _, item := range meal.Items {
				existing[strings.ToLower(item.Name)] = true
			}

			var fresh []scaledFood
			for _, f := range scaled {
				if !existing[strings.ToLower(f.Name)] {
					fresh = append(fresh, f)
				}
			}
			if len(fresh) == 0 {
				message = fmt.Sprintf("%s은(는) 이미 기록되어 있어요!", foodNames(scaled))
				return nil
			}

			added := 0
			for _, f := range fresh {
				if err := tx.Create(&database.MealItem{
					MealID:   meal.ID,
					Name:     f.Name,
					Quantity: f.Quantity,
					Calories: f.Calories,
					ProteinG: f.Protein,
					CarbsG:   f.Carbs,
					FatG:     f.Fat,
				}).Error; err != nil {
					return err
				}
				added += f.Calories
			}
			if err := tx.Model(&database.Meal{}).
				Where("id = ?", meal.ID).
				Update("total_calories", meal.TotalCalories+added).Error; err != nil {
				return err
			}
			message = fmt.Sprintf("%s (%dkcal) 기록 완료", foodNames(fresh), added)
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			total := 0
			for _, f := range scaled {
				total += f.Calories
			}
			meal = database.Meal{
				UserID:        userID,
				Date:          date,
				MealType:      string(mealType),
				TotalCalories: total,
			}
			for _, f := range scaled {
				meal.Items = append(meal.Items, database.MealItem{
					Name:     f.Name,
					Quantity: f.Quantity,
					Calories: f.Calories,
					ProteinG: f.Protein,
					CarbsG:   f.Carbs,
					FatG:     f.Fat,
				})
			}
			if err := tx.Create(&meal).Error; err != nil {
				return err
			}
			message = fmt.Sprintf("%s (%dkcal) 기록 완료", foodNames(scaled), total)
			return nil

		default:
			return err
		}
	})
	if err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Error("Failed to log meal")
		return "", apperrors.NewDatabaseError(err)
	}
	return message, nil
}

// GetMeals renders the user's meals for a date as a Korean summary. The
// filter narrows to one slot; MealTypeAll returns the whole day.
func (s *MealService) GetMeals(ctx context.Context, userID, date string, filter domain.MealType) (string, error) {
	query := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND date = ?", userID, date)
	if filter != domain.MealTypeAll {
		query = query.Where("meal_type = ?", string(filter))
	}

	var meals []database.Meal
	if err := query.Order("created_at ASC").Find(&meals).Error; err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Error("Failed to fetch meals")
		return "", apperrors.NewDatabaseError(err)
	}
	if len(meals) == 0 {
		return fmt.Sprintf("%s 식단 기록이 없습니다.", date), nil
	}

	var lines []string
	total := 0
	for _, meal := range meals {
		names := make([]string, 0, len(meal.Items))
		for _, item := range meal.Items {
			names = append(names, item.Name)
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%dkcal)",
			domain.MealType(meal.MealType).Label(), strings.Join(names, ", "), meal.TotalCalories))
		total += meal.TotalCalories
	}
	return fmt.Sprintf("%s 식단:\n%s\n총 %dkcal", date, strings.Join(lines, "\n"), total), nil
}

// DeleteMeal removes a whole meal slot, or one food from it when foodName
// is set. The food matches by case-insensitive substring, first hit wins.
// Deleting the last food removes the meal row too.
func (s *MealService) DeleteMeal(ctx context.Context, userID string, mealType domain.MealType, date, foodName string) (string, error) {
	var message string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal database.Meal
		err := tx.Preload("Items").
			Where("user_id = ? AND date = ? AND meal_type = ?", userID, date, string(mealType)).
			First(&meal).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			message = fmt.Sprintf("%s %s 기록이 없습니다.", date, mealType.Label())
			return nil
		}
		if err != nil {
			return err
		}

		if foodName == "" {
			if err := s.deleteWholeMeal(tx, &meal); err != nil {
				return err
			}
			message = fmt.Sprintf("%s 전체 삭제 완료", mealType.Label())
			return nil
		}

		target := findItem(meal.Items, foodName)
		if target == nil {
			message = fmt.Sprintf("\"%s\"을(를) 찾을 수 없습니다.", foodName)
			return nil
		}

		if len(meal.Items) == 1 {
			if err := s.deleteWholeMeal(tx, &meal); err != nil {
				return err
			}
			message = fmt.Sprintf("\"%s\" 삭제 완료", target.Name)
			return nil
		}

		if err := tx.Delete(&database.MealItem{}, target.ID).Error; err != nil {
			return err
		}
		newTotal := meal.TotalCalories - target.Calories
		if newTotal < 0 {
			newTotal = 0
		}
		if err := tx.Model(&database.Meal{}).
			Where("id = ?", meal.ID).
			Update("total_calories", newTotal).Error; err != nil {
			return err
		}
		message = fmt.Sprintf("\"%s\" 삭제 완료", target.Name)
		return nil
	})
	if err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Error("Failed to delete meal")
		return "", apperrors.NewDatabaseError(err)
	}
	return message, nil
}

// UpdateMeal replaces one food in a meal slot with a new one and adjusts
// the total by the calorie difference, floored at zero.
func (s *MealService) UpdateMeal(ctx context.Context, userID string, mealType domain.MealType, date, oldFoodName string, newFood FoodInput) (string, error) {
	scaled := scaleFood(newFood)

	var message string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meal database.Meal
		err := tx.Preload("Items").
			Where("user_id = ? AND date = ? AND meal_type = ?", userID, date, string(mealType)).
			First(&meal).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			message = fmt.Sprintf("%s %s 기록이 없습니다.", date, mealType.Label())
			return nil
		}
		if err != nil {
			return err
		}

		target := findItem(meal.Items, oldFoodName)
		if target == nil {
			message = fmt.Sprintf("\"%s\"을(를) 찾을 수 없습니다.", oldFoodName)
			return nil
		}

		if err := tx.Model(&database.MealItem{}).
			Where("id = ?", target.ID).
			Updates(map[string]any{
				"name":      scaled.Name,
				"quantity":  scaled.Quantity,
				"calories":  scaled.Calories,
				"protein_g": scaled.Protein,
				"carbs_g":   scaled.Carbs,
				"fat_g":     scaled.Fat,
			}).Error; err != nil {
			return err
		}

		newTotal := meal.TotalCalories + scaled.Calories - target.Calories
		if newTotal < 0 {
			newTotal = 0
		}
		if err := tx.Model(&database.Meal{}).
			Where("id = ?", meal.ID).
			Update("total_calories", newTotal).Error; err != nil {
			return err
		}
		message = fmt.Sprintf("\"%s\" → \"%s\" 수정 완료", target.Name, scaled.Name)
		return nil
	})
	if err != nil {
		s.logger.WithFields(map[string]any{"error": err.Error()}).Error("Failed to update meal")
		return "", apperrors.NewDatabaseError(err)
	}
	return message, nil
}

// deleteWholeMeal removes a meal and its items. The item delete is explicit
// because sqlite in tests does not enforce the cascade constraint.
func (s *MealService) deleteWholeMeal(tx *gorm.DB, meal *database.Meal) error {
	if err := tx.Where("meal_id = ?", meal.ID).Delete(&database.MealItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&database.Meal{}, meal.ID).Error
}

// findItem returns the first item whose name contains needle, ignoring
// case, or nil.
func findItem(items []database.MealItem, needle string) *database.MealItem {
	lower := strings.ToLower(needle)
	for i := range items {
		if strings.Contains(strings.ToLower(items[i].Name), lower) {
			return &items[i]
		}
	}
	return nil
}
