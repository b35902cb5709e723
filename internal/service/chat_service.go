package service

import (
	"errors"

	"talktolisten/backend/internal/models"

	"gorm.io/gorm"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatService handles conversations between users and bots.
type ChatService struct {
	db *gorm.DB
}

// NewChatService creates a new chat service
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// CreateChat opens a conversation between a user and a bot. Reopening an
// existing pairing returns the existing chat instead of duplicating it.
func (s *ChatService) CreateChat(userID, botID uint) (*models.Chat, error) {
	var existing models.Chat
	result := s.db.Where("user_id = ? AND bot_id = ?", userID, botID).First(&existing)
	if result.Error == nil {
		return &existing, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	chat := &models.Chat{UserID: userID, BotID: botID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bot{}).Where("id = ?", botID).
			UpdateColumn("num_chats", gorm.Expr("num_chats + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) GetChat(id uint) (*models.Chat, error) {
	var chat models.Chat
	result := s.db.Preload("Bot").Preload("Bot.Voice").First(&chat, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, result.Error
	}
	return &chat, nil
}

// ListUserChats returns a user's conversations, most recently active first.
func (s *ChatService) ListUserChats(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.db.Preload("Bot").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *ChatService) DeleteChat(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Chat{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return nil
	})
}
