package models

import (
	"time"
)

// Message is one line of a chat, written by either the user or the bot.
// AudioURL points at the synthesized spoken form for bot messages that were
// produced by the voice pipeline; it is keyed by the message id in blob
// storage.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ChatID    uint      `json:"chat_id" gorm:"index;not null"`
	Text      string    `json:"text" gorm:"not null"`
	UserID    uint      `json:"user_id,omitempty" gorm:"index"`
	BotID     uint      `json:"bot_id,omitempty" gorm:"index"`
	IsBot     bool      `json:"is_bot" gorm:"index"`
	AudioURL  string    `json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessageRequest is the request structure for posting a text message
type CreateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}
