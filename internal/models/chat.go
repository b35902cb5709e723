package models

import (
	"time"
)

// Chat is a conversation between one user and one bot.
type Chat struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	BotID       uint      `json:"bot_id" gorm:"index;not null"`
	Bot         *Bot      `json:"bot,omitempty" gorm:"foreignKey:BotID"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateChatRequest is the request structure for opening a chat
type CreateChatRequest struct {
	BotID uint `json:"bot_id" binding:"required"`
}
