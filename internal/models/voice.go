package models

import (
	"time"
)

// Voice is a speech synthesis profile a bot speaks with. Endpoint is the
// provider URL whose trailing path segment identifies the provider voice.
type Voice struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Endpoint    string    `json:"endpoint" gorm:"not null"`
	Provider    string    `json:"provider" gorm:"default:elevenlabs"`
	CreatedBy   uint      `json:"created_by" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateVoiceRequest is the request structure for registering a voice
type CreateVoiceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint" binding:"required"`
	Provider    string `json:"provider"`
}

// UpdateVoiceRequest carries the mutable voice fields
type UpdateVoiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
	Provider    string `json:"provider"`
}
