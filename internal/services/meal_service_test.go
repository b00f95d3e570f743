package services

import (
	"context"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
)

const testUserID = "8f14e45f-ceea-467f-9575-127504b86f01"

func loadMeal(t *testing.T, db *gorm.DB, date string, mealType domain.MealType) *database.Meal {
	t.Helper()
	var meal database.Meal
	err := db.Preload("Items").
		Where("user_id = ? AND date = ? AND meal_type = ?", testUserID, date, string(mealType)).
		First(&meal).Error
	if err != nil {
		t.Fatalf("failed to load meal: %v", err)
	}
	return &meal
}

func TestLogMealCreatesAndScales(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	msg, err := svc.LogMeal(ctx, testUserID, domain.MealTypeLunch, "2026-08-28", []FoodInput{
		{Name: "치킨", Quantity: 2, Calories: 450, Protein: 40.04, Carbs: 10, Fat: 25},
	})
	if err != nil {
		t.Fatalf("LogMeal failed: %v", err)
	}
	if !strings.Contains(msg, "치킨") || !strings.Contains(msg, "900kcal") || !strings.Contains(msg, "기록 완료") {
		t.Fatalf("unexpected message: %s", msg)
	}

	meal := loadMeal(t, svc.db, "2026-08-28", domain.MealTypeLunch)
	if meal.TotalCalories != 900 {
		t.Fatalf("expected total 900, got %d", meal.TotalCalories)
	}
	if len(meal.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(meal.Items))
	}
	if meal.Items[0].Calories != 900 {
		t.Fatalf("expected item calories scaled to 900, got %d", meal.Items[0].Calories)
	}
	if meal.Items[0].ProteinG != 80.1 {
		t.Fatalf("expected protein rounded to 80.1, got %g", meal.Items[0].ProteinG)
	}
}

func TestLogMealAppendsAndSkipsDuplicates(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	if _, err := svc.LogMeal(ctx, testUserID, domain.MealTypeDinner, "2026-08-28", []FoodInput{
		{Name: "밥", Quantity: 1, Calories: 300},
	}); err != nil {
		t.Fatalf("first LogMeal failed: %v", err)
	}

	// Same name again: suppressed as a duplicate.
	msg, err := svc.LogMeal(ctx, testUserID, domain.MealTypeDinner, "2026-08-28", []FoodInput{
		{Name: "밥", Quantity: 1, Calories: 300},
	})
	if err != nil {
		t.Fatalf("duplicate LogMeal failed: %v", err)
	}
	if !strings.Contains(msg, "이미 기록되어 있어요") {
		t.Fatalf("expected duplicate notice, got %s", msg)
	}

	meal := loadMeal(t, svc.db, "2026-08-28", domain.MealTypeDinner)
	if len(meal.Items) != 1 || meal.TotalCalories != 300 {
		t.Fatalf("duplicate write should be a no-op, got %d items total %d", len(meal.Items), meal.TotalCalories)
	}

	// A mix of old and new foods records only the new one.
	msg, err = svc.LogMeal(ctx, testUserID, domain.MealTypeDinner, "2026-08-28", []FoodInput{
		{Name: "밥", Quantity: 1, Calories: 300},
		{Name: "김치찌개", Quantity: 1, Calories: 150},
	})
	if err != nil {
		t.Fatalf("mixed LogMeal failed: %v", err)
	}
	if !strings.Contains(msg, "김치찌개") || strings.Contains(msg, "밥,") {
		t.Fatalf("expected only the new food in message, got %s", msg)
	}

	meal = loadMeal(t, svc.db, "2026-08-28", domain.MealTypeDinner)
	if len(meal.Items) != 2 || meal.TotalCalories != 450 {
		t.Fatalf("expected 2 items total 450, got %d items total %d", len(meal.Items), meal.TotalCalories)
	}
}

func TestGetMealsSummary(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	msg, err := svc.GetMeals(ctx, testUserID, "2026-08-28", domain.MealTypeAll)
	if err != nil {
		t.Fatalf("GetMeals failed: %v", err)
	}
	if msg != "2026-08-28 식단 기록이 없습니다." {
		t.Fatalf("unexpected empty-day message: %s", msg)
	}

	mustLog := func(mealType domain.MealType, foods ...FoodInput) {
		t.Helper()
		if _, err := svc.LogMeal(ctx, testUserID, mealType, "2026-08-28", foods); err != nil {
			t.Fatalf("LogMeal failed: %v", err)
		}
	}
	mustLog(domain.MealTypeBreakfast, FoodInput{Name: "토스트", Quantity: 1, Calories: 250})
	mustLog(domain.MealTypeLunch, FoodInput{Name: "비빔밥", Quantity: 1, Calories: 550})

	msg, err = svc.GetMeals(ctx, testUserID, "2026-08-28", domain.MealTypeAll)
	if err != nil {
		t.Fatalf("GetMeals failed: %v", err)
	}
	if !strings.Contains(msg, "아침: 토스트 (250kcal)") {
		t.Fatalf("expected breakfast line, got %s", msg)
	}
	if !strings.Contains(msg, "점심: 비빔밥 (550kcal)") {
		t.Fatalf("expected lunch line, got %s", msg)
	}
	if !strings.Contains(msg, "총 800kcal") {
		t.Fatalf("expected grand total, got %s", msg)
	}

	// Filtered query excludes other slots.
	msg, err = svc.GetMeals(ctx, testUserID, "2026-08-28", domain.MealTypeLunch)
	if err != nil {
		t.Fatalf("filtered GetMeals failed: %v", err)
	}
	if strings.Contains(msg, "토스트") || !strings.Contains(msg, "비빔밥") {
		t.Fatalf("expected lunch only, got %s", msg)
	}
}

func TestDeleteMealItemAndWholeMeal(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	if _, err := svc.LogMeal(ctx, testUserID, domain.MealTypeLunch, "2026-08-28", []FoodInput{
		{Name: "불고기 피자", Quantity: 1, Calories: 560},
		{Name: "콜라", Quantity: 1, Calories: 140},
	}); err != nil {
		t.Fatalf("LogMeal failed: %v", err)
	}

	// Substring match finds the pizza.
	msg, err := svc.DeleteMeal(ctx, testUserID, domain.MealTypeLunch, "2026-08-28", "피자")
	if err != nil {
		t.Fatalf("DeleteMeal failed: %v", err)
	}
	if !strings.Contains(msg, "불고기 피자") || !strings.Contains(msg, "삭제 완료") {
		t.Fatalf("unexpected message: %s", msg)
	}

	meal := loadMeal(t, svc.db, "2026-08-28", domain.MealTypeLunch)
	if len(meal.Items) != 1 || meal.TotalCalories != 140 {
		t.Fatalf("expected 1 item total 140, got %d items total %d", len(meal.Items), meal.TotalCalories)
	}

	// Removing the last item drops the meal row entirely.
	if _, err := svc.DeleteMeal(ctx, testUserID, domain.MealTypeLunch, "2026-08-28", "콜라"); err != nil {
		t.Fatalf("DeleteMeal failed: %v", err)
	}
	msg, err = svc.GetMeals(ctx, testUserID, "2026-08-28", domain.MealTypeAll)
	if err != nil {
		t.Fatalf("GetMeals failed: %v", err)
	}
	if !strings.Contains(msg, "기록이 없습니다") {
		t.Fatalf("expected empty day after deleting sole item, got %s", msg)
	}
}

func TestDeleteMealMissing(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	msg, err := svc.DeleteMeal(ctx, testUserID, domain.MealTypeDinner, "2026-08-28", "")
	if err != nil {
		t.Fatalf("DeleteMeal failed: %v", err)
	}
	if !strings.Contains(msg, "저녁 기록이 없습니다") {
		t.Fatalf("expected missing-meal notice, got %s", msg)
	}

	if _, err := svc.LogMeal(ctx, testUserID, domain.MealTypeDinner, "2026-08-28", []FoodInput{
		{Name: "샐러드", Quantity: 1, Calories: 200},
	}); err != nil {
		t.Fatalf("LogMeal failed: %v", err)
	}
	msg, err = svc.DeleteMeal(ctx, testUserID, domain.MealTypeDinner, "2026-08-28", "치킨")
	if err != nil {
		t.Fatalf("DeleteMeal failed: %v", err)
	}
	if !strings.Contains(msg, "찾을 수 없습니다") {
		t.Fatalf("expected not-found notice, got %s", msg)
	}

	meal := loadMeal(t, svc.db, "2026-08-28", domain.MealTypeDinner)
	if len(meal.Items) != 1 {
		t.Fatalf("not-found delete must not change data, got %d items", len(meal.Items))
	}
}

func TestUpdateMealAdjustsTotal(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	if _, err := svc.LogMeal(ctx, testUserID, domain.MealTypeLunch, "2026-08-28", []FoodInput{
		{Name: "라면", Quantity: 1, Calories: 500},
		{Name: "김밥", Quantity: 1, Calories: 300},
	}); err != nil {
		t.Fatalf("LogMeal failed: %v", err)
	}

	msg, err := svc.UpdateMeal(ctx, testUserID, domain.MealTypeLunch, "2026-08-28", "라면",
		FoodInput{Name: "샐러드", Quantity: 1, Calories: 200, Protein: 5, Carbs: 15, Fat: 8})
	if err != nil {
		t.Fatalf("UpdateMeal failed: %v", err)
	}
	if !strings.Contains(msg, `"라면" → "샐러드" 수정 완료`) {
		t.Fatalf("unexpected message: %s", msg)
	}

	meal := loadMeal(t, svc.db, "2026-08-28", domain.MealTypeLunch)
	if meal.TotalCalories != 500 {
		t.Fatalf("expected total adjusted to 500, got %d", meal.TotalCalories)
	}
	found := false
	for _, item := range meal.Items {
		if item.Name == "샐러드" && item.Calories == 200 {
			found = true
		}
		if item.Name == "라면" {
			t.Fatalf("old item should be gone")
		}
	}
	if !found {
		t.Fatalf("expected replacement item, got %+v", meal.Items)
	}
}

func TestUpdateMealMissingTargets(t *testing.T) {
	svc := NewMealService(newTestDB(t), testLogger())
	ctx := context.Background()

	newFood := FoodInput{Name: "샐러드", Quantity: 1, Calories: 200}

	msg, err := svc.UpdateMeal(ctx, testUserID, domain.MealTypeBreakfast, "2026-08-28", "라면", newFood)
	if err != nil {
		t.Fatalf("UpdateMeal failed: %v", err)
	}
	if !strings.Contains(msg, "아침 기록이 없습니다") {
		t.Fatalf("expected missing-meal notice, got %s", msg)
	}

	if _, err := svc.LogMeal(ctx, testUserID, domain.MealTypeBreakfast, "2026-08-28", []FoodInput{
		{Name: "토스트", Quantity: 1, Calories: 250},
	}); err != nil {
		t.Fatalf("LogMeal failed: %v", err)
	}
	msg, err = svc.UpdateMeal(ctx, testUserID, domain.MealTypeBreakfast, "2026-08-28", "라면", newFood)
	if err != nil {
		t.Fatalf("UpdateMeal failed: %v", err)
	}
	if !strings.Contains(msg, "찾을 수 없습니다") {
		t.Fatalf("expected not-found notice, got %s", msg)
	}
}
