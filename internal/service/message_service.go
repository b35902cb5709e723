package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"talktolisten/backend/internal/models"
	sharedredis "talktolisten/backend/shared/redis"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

// historyCacheTTL bounds staleness of the cached per-chat history page.
const historyCacheTTL = 10 * time.Minute

// MessageService handles message persistence for both halves of a
// conversation: user text messages and bot replies produced by the voice
// pipeline.
type MessageService struct {
	db    *gorm.DB
	redis *sharedredis.RedisClient
}

// NewMessageService creates a new message service. redis may be nil, in
// which case history reads always hit the database.
func NewMessageService(db *gorm.DB, redis *sharedredis.RedisClient) *MessageService {
	return &MessageService{db: db, redis: redis}
}

func historyCacheKey(chatID uint) string {
	return fmt.Sprintf("chat:%d:history", chatID)
}

// CreateUserMessage persists a text message sent by the user.
func (s *MessageService) CreateUserMessage(chatID, userID uint, text string) (*models.Message, error) {
	msg := &models.Message{
		ChatID: chatID,
		UserID: userID,
		Text:   text,
		IsBot:  false,
	}
	if err := s.create(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateBotMessage persists a bot reply and returns its id, so the caller
// can key derived artifacts (like synthesized audio) by it.
func (s *MessageService) CreateBotMessage(ctx context.Context, chatID, botID uint, text string) (uint, error) {
	msg := &models.Message{
		ChatID: chatID,
		BotID:  botID,
		Text:   text,
		IsBot:  true,
	}
	if err := s.create(msg); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// AttachAudio records the retrieval URL of the synthesized spoken form of a
// bot message.
func (s *MessageService) AttachAudio(ctx context.Context, messageID uint, url string) error {
	result := s.db.Model(&models.Message{}).Where("id = ?", messageID).
		Update("audio_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *MessageService) create(msg *models.Message) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", msg.ChatID).
			Update("last_message", msg.Text).Error
	})
	if err != nil {
		return err
	}

	if s.redis != nil {
		s.redis.Del(historyCacheKey(msg.ChatID))
	}
	return nil
}

// GetChatMessages returns a chat's messages oldest first. The most recent
// page is served from redis when available.
func (s *MessageService) GetChatMessages(chatID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	key := historyCacheKey(chatID)
	if s.redis != nil {
		if raw, err := s.redis.Get(key); err == nil {
			var cached []models.Message
			if json.Unmarshal([]byte(raw), &cached) == nil && len(cached) >= limit {
				return cached[len(cached)-limit:], nil
			}
		}
	}

	var messages []models.Message
	err := s.db.Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(messages); err == nil {
			s.redis.Set(key, string(raw), historyCacheTTL)
		}
	}
	return messages, nil
}

// GetOlderMessages pages backwards through history: messages created before
// the given message id, oldest first. Always hits the database; only the
// most recent page is cached.
func (s *MessageService) GetOlderMessages(chatID, beforeID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var messages []models.Message
	err := s.db.Where("chat_id = ? AND id < ?", chatID, beforeID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteMessage removes one message from a chat and invalidates the cached
// history page.
func (s *MessageService) DeleteMessage(chatID, messageID uint) error {
	result := s.db.Where("chat_id = ?", chatID).Delete(&models.Message{}, messageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}

	if s.redis != nil {
		s.redis.Del(historyCacheKey(chatID))
	}
	return nil
}

// GetMessage retrieves one message by id.
func (s *MessageService) GetMessage(id uint) (*models.Message, error) {
	var msg models.Message
	result := s.db.First(&msg, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return &msg, nil
}
