package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/config"
)

// ChatMessage is one turn of a conversation. Rows are append-only; history
// is always fetched ordered by creation time and scoped by chat type so the
// diet and medication surfaces never mix.
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;index:idx_messages_user_type"`
	Role      string `gorm:"size:16"` // "user" or "assistant"
	Content   string
	ChatType  string `gorm:"size:16;index:idx_messages_user_type"` // "diet" or "medication"
	CreatedAt time.Time
}

// Meal aggregates everything eaten for one meal slot on one calendar date.
// The composite unique index enforces at-most-one meal per (user, date,
// type) even under concurrent writers.
type Meal struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        string `gorm:"size:36;uniqueIndex:idx_meals_user_date_type"`
	Date          string `gorm:"size:10;uniqueIndex:idx_meals_user_date_type"` // YYYY-MM-DD
	MealType      string `gorm:"size:16;uniqueIndex:idx_meals_user_date_type"`
	TotalCalories int
	Items         []MealItem `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MealItem stores one food of a meal. Calories and macros are already
// scaled by Quantity at insert time.
type MealItem struct {
	ID        uint `gorm:"primaryKey"`
	MealID    uint `gorm:"index"`
	Name      string
	Quantity  float64
	Calories  int
	ProteinG  float64
	CarbsG    float64
	FatG      float64
	CreatedAt time.Time
}

// WeightRecord is one point of the user's weight time series, one per date.
type WeightRecord struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;uniqueIndex:idx_weights_user_date"`
	Date      string `gorm:"size:10;uniqueIndex:idx_weights_user_date"`
	WeightKg  float64
	CreatedAt time.Time
}

// UserProfile holds the externally managed target numbers. The chatbot only
// reads it.
type UserProfile struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          string `gorm:"size:36;uniqueIndex"`
	TargetCalories  int
	CurrentWeightKg *float64
	GoalWeightKg    *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema. Shared with the sqlite-backed
// test setup.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&ChatMessage{},
		&Meal{},
		&MealItem{},
		&WeightRecord{},
		&UserProfile{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
