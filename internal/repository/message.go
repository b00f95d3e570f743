package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/database"
)

// MessageRepository handles the append-only conversation log.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save appends one turn to the user's history.
func (r *MessageRepository) Save(ctx context.Context, userID, role, content, chatType string) error {
	msg := &database.ChatMessage{
		UserID:   userID,
		Role:     role,
		Content:  content,
		ChatType: chatType,
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// ListRecent returns the most recent limit messages for one chat surface,
// oldest first. The fetch is newest-first so the limit trims old turns, then
// the slice is reversed for the caller.
func (r *MessageRepository) ListRecent(ctx context.Context, userID, chatType string, limit int) ([]database.ChatMessage, error) {
	var messages []database.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND chat_type = ?", userID, chatType).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Clear removes the user's history for one chat surface.
func (r *MessageRepository) Clear(ctx context.Context, userID, chatType string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND chat_type = ?", userID, chatType).
		Delete(&database.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("failed to clear chat messages: %w", err)
	}
	return nil
}
