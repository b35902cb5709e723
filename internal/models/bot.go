package models

import (
	"time"
)

// Bot is a chattable character: prompt material plus a synthesis voice.
type Bot struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"not null;index"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description" gorm:"not null"`
	ProfilePicture   string    `json:"profile_picture"`
	Category         string    `json:"category" gorm:"index"`
	VoiceID          uint      `json:"voice_id" gorm:"index"`
	Voice            *Voice    `json:"voice,omitempty" gorm:"foreignKey:VoiceID"`
	NumChats         int64     `json:"num_chats" gorm:"default:0"`
	Likes            int64     `json:"likes" gorm:"default:0"`
	CreatedBy        uint      `json:"created_by" gorm:"index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateBotRequest is the request structure for creating a new bot
type CreateBotRequest struct {
	Name             string `json:"name" binding:"required"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description" binding:"required"`
	ProfilePicture   string `json:"profile_picture"`
	Category         string `json:"category"`
	VoiceID          uint   `json:"voice_id" binding:"required"`
}

// UpdateBotRequest carries the mutable bot fields
type UpdateBotRequest struct {
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	ProfilePicture   string `json:"profile_picture"`
	Category         string `json:"category"`
	VoiceID          uint   `json:"voice_id"`
}
