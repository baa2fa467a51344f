package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"researchhub/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListByScope returns every message of the user's scope in chronological order.
func (r *MessageRepository) ListByScope(ctx context.Context, userID uint, scope model.Scope) ([]model.ChatMessage, error) {
	q := whereScope(r.db.WithContext(ctx).Where("user_id = ?", userID), scope)
	var messages []model.ChatMessage
	if err := q.Order("timestamp ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// ListRecentByScope returns the newest limit messages, oldest first.
func (r *MessageRepository) ListRecentByScope(ctx context.Context, userID uint, scope model.Scope, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return []model.ChatMessage{}, nil
	}
	q := whereScope(r.db.WithContext(ctx).Where("user_id = ?", userID), scope)
	var newest []model.ChatMessage
	if err := q.Order("timestamp DESC, id DESC").Limit(limit).Find(&newest).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	messages := make([]model.ChatMessage, 0, len(newest))
	for i := len(newest) - 1; i >= 0; i-- {
		messages = append(messages, newest[i])
	}
	return messages, nil
}
